// Package chat implements the scripted policy assistant: user text is echoed
// into the transcript and answered with a canned reply after a short delay.
package chat

import (
	"time"

	"github.com/signalsfoundry/qos-dashboard/internal/sim/rng"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	MinReplyDelay = 1500 * time.Millisecond
	MaxReplyDelay = 2500 * time.Millisecond
)

// Greeting opens every transcript.
const Greeting = "Hello! I'm your Network Priority Assistant. I can help you understand application classifications, priority policies, and traffic direction optimization for Netflix, Amazon Prime, Google Meet, Microsoft Teams, Metaverse/Roblox, and GeForce Gaming. How can I help?"

var responses = []string{
	"Netflix and Amazon Prime are classified as Medium Priority with High Throughput policy, optimized for downlink-heavy traffic at 25-50 Mbps for 4K streaming.",
	"GeForce Gaming and Metaverse/Roblox require Ultra-Low Latency with <10ms RTT. High Priority classification ensures balanced uplink/downlink for real-time gameplay.",
	"Microsoft Teams and Google Meet are classified as High Priority with Low Latency policy (<50ms). They use balanced traffic patterns for video conferencing.",
	"Uplink traffic prioritizes voice/video uploads for conferencing apps. Downlink prioritizes streaming content. Balanced mode is optimal for gaming and metaverse applications.",
	"Current classification: High Priority (Gaming, Teams, Meet, Metaverse) gets QCI-1/2, Medium Priority (Netflix, Prime) gets QCI-5/7 for bandwidth optimization.",
	"ML model detects application signatures: QUIC for streaming services, WebRTC for conferencing, UDP for gaming. 96.2% classification accuracy achieved.",
}

var quickActions = []string{
	"Netflix vs Amazon Prime Priority",
	"Gaming Latency Requirements",
	"Teams vs Meet Classification",
	"Uplink vs Downlink Policies",
}

// Responses returns a copy of the canned replies.
func Responses() []string { return append([]string(nil), responses...) }

// QuickActions returns the preset prompts offered next to the input box.
func QuickActions() []string { return append([]string(nil), quickActions...) }

// IsResponse reports whether s is one of the canned replies.
func IsResponse(s string) bool {
	for _, r := range responses {
		if r == s {
			return true
		}
	}
	return false
}

// ReplyDelay draws a delay in [MinReplyDelay, MaxReplyDelay).
func ReplyDelay(src rng.Source) time.Duration {
	return MinReplyDelay + time.Duration(src.Float64()*float64(MaxReplyDelay-MinReplyDelay))
}

// PickResponse draws one canned reply uniformly.
func PickResponse(src rng.Source) string {
	return rng.Pick(src, responses)
}
