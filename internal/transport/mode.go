// Package transport normalizes client-supplied transport modes to the three
// canonical routing profiles.
package transport

import (
	"fmt"
	"sort"
	"strings"
)

// Canonical profiles.
const (
	ModeDriving = "driving"
	ModeWalking = "walking"
	ModeCycling = "cycling"
)

// aliases maps accepted spellings to canonical profiles.
var aliases = map[string]string{
	"driving":    ModeDriving,
	"car":        ModeDriving,
	"auto":       ModeDriving,
	"drive":      ModeDriving,
	"walking":    ModeWalking,
	"walk":       ModeWalking,
	"pedestrian": ModeWalking,
	"foot":       ModeWalking,
	"cycling":    ModeCycling,
	"bike":       ModeCycling,
	"cycle":      ModeCycling,
	"bicycle":    ModeCycling,
}

// Modes returns the canonical profile names.
func Modes() []string {
	return []string{ModeDriving, ModeWalking, ModeCycling}
}

// Aliases returns accepted aliases grouped by canonical profile.
func Aliases() map[string][]string {
	grouped := make(map[string][]string, 3)
	for alias, mode := range aliases {
		if alias == mode {
			continue
		}
		grouped[mode] = append(grouped[mode], alias)
	}
	for _, list := range grouped {
		sort.Strings(list)
	}
	return grouped
}

// UnsupportedModeError carries the rejected value plus everything the client
// could have sent instead.
type UnsupportedModeError struct {
	Mode string
}

func (e *UnsupportedModeError) Error() string {
	return fmt.Sprintf("unsupported transport mode %q", e.Mode)
}

// Normalize maps a client mode string to a canonical profile. Empty input
// defaults to driving; unknown values return UnsupportedModeError.
func Normalize(mode string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(mode))
	if trimmed == "" {
		return ModeDriving, nil
	}
	if canonical, ok := aliases[trimmed]; ok {
		return canonical, nil
	}
	return "", &UnsupportedModeError{Mode: mode}
}
