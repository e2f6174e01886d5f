package crm

import "strings"

// MaxNameLength bounds an account name and the full name of a contact, so
// a name fits on either side of a sync
const MaxNameLength = 200

// NormalizeAccountName is the stored form of an account name
func NormalizeAccountName(name string) string {
	return strings.TrimSpace(name)
}

// SplitName splits a display name at the first space (U+0020). Without
// one the whole string becomes the first name and the last name is empty.
// For a normalized account name n, JoinName(SplitName(n)) == n.
func SplitName(name string) (first, last string) {
	first, last, _ = strings.Cut(name, " ")
	return first, last
}

// JoinName builds a display name from first and last name.
// The separator is a single space and is omitted when last is empty.
func JoinName(first, last string) string {
	if last == "" {
		return first
	}
	return first + " " + last
}
