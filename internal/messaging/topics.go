package messaging

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Device topic namespace.
const (
	DevicesPrefix   = "/devices/"
	DevicesWildcard = "/devices/#"
)

// ErrInvalidTopic is returned for topics that cannot be mapped onto a subject.
var ErrInvalidTopic = errors.New("invalid topic")

// DeviceTopic returns the topic for a single device.
func DeviceTopic(device string) string {
	return DevicesPrefix + device
}

// DeviceFromTopic returns the last path segment of topic.
func DeviceFromTopic(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}

// ValidDeviceID reports whether id can be used as a single topic segment.
func ValidDeviceID(id string) bool {
	return validSegment(id) && id != "#" && id != "+"
}

// TopicToSubject converts "/devices/light1" to "devices.light1".
// A trailing "#" becomes ">" and a "+" segment becomes "*".
func TopicToSubject(topic string) (string, error) {
	trimmed := strings.TrimPrefix(topic, "/")
	if trimmed == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}

	segments := strings.Split(trimmed, "/")
	for i, seg := range segments {
		switch {
		case seg == "#" && i == len(segments)-1:
			segments[i] = ">"
		case seg == "+":
			segments[i] = "*"
		case !validSegment(seg):
			return "", fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
		}
	}
	return strings.Join(segments, "."), nil
}

// SubjectToTopic is the inverse of TopicToSubject.
func SubjectToTopic(subject string) string {
	segments := strings.Split(subject, ".")
	for i, seg := range segments {
		switch seg {
		case ">":
			segments[i] = "#"
		case "*":
			segments[i] = "+"
		}
	}
	return "/" + strings.Join(segments, "/")
}

func validSegment(seg string) bool {
	if seg == "" {
		return false
	}
	for _, r := range seg {
		if unicode.IsSpace(r) {
			return false
		}
		switch r {
		case '.', '*', '>', '/', '#', '+':
			return false
		}
	}
	return true
}
