// Package authz decides whether a user may control a device.
package authz

import "sort"

// AccessList maps a username to the devices it may control.
type AccessList map[string][]string

// DefaultAccessList returns the lab's built-in access list.
func DefaultAccessList() AccessList {
	return AccessList{
		"user1": {"light1", "light2", "thermostat", "lock"},
		"user2": {"light1"},
	}
}

// Allows reports whether user may control device.
func (a AccessList) Allows(user, device string) bool {
	for _, d := range a[user] {
		if d == device {
			return true
		}
	}
	return false
}

// Devices returns a sorted copy of the devices user may control.
func (a AccessList) Devices(user string) []string {
	out := append([]string(nil), a[user]...)
	sort.Strings(out)
	return out
}

// Users returns the sorted list of users with at least one device.
func (a AccessList) Users() []string {
	out := make([]string, 0, len(a))
	for u, devices := range a {
		if len(devices) > 0 {
			out = append(out, u)
		}
	}
	sort.Strings(out)
	return out
}
