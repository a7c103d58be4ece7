package model

import (
	"errors"
	"fmt"
	"strings"
)

// Target enumeration errors.
var (
	// ErrNoURLs is returned when no URL is configured.
	ErrNoURLs = errors.New("no urls configured: at least one url is required")

	// ErrNoScreenSizes is returned when no screen size is configured.
	ErrNoScreenSizes = errors.New("no screen sizes configured: at least one size is required")

	// ErrLegacyScreenSize is returned for a size written in the pre-0.5
	// WIDTHxHEIGHT syntax. Sizes are plain widths; the capture height
	// always follows the page.
	ErrLegacyScreenSize = errors.New("legacy screen size syntax: use the width only (e.g. '800' instead of '800x600')")

	// ErrInvalidDescriptor is returned when a capture descriptor is not in url#size form.
	ErrInvalidDescriptor = errors.New("invalid capture descriptor: expected url#size")
)

// descriptorSeparator joins URL and size in a capture descriptor.
const descriptorSeparator = "#"

// Target is one (URL, viewport size) pair to be captured and compared.
// Targets are comparable values and are used as map keys by the tracker.
type Target struct {
	// URL is the page to capture.
	URL string `json:"url"`

	// Size is the viewport width exactly as configured.
	Size string `json:"size"`
}

// Descriptor returns the url#size string handed to the capture collaborator.
func (t Target) Descriptor() string {
	return t.URL + descriptorSeparator + t.Size
}

// Slug returns the filesystem-safe name of the target's artifacts.
// The protocol is stripped, path separators and pipes become dashes, and
// the url/size separator becomes a dash.
func (t Target) Slug() string {
	s := t.Descriptor()
	for _, prefix := range []string{"http://", "https://"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}
	s = strings.NewReplacer("/", "-", "|", "-").Replace(s)
	return strings.Replace(s, descriptorSeparator, "-", 1)
}

// String implements fmt.Stringer.
func (t Target) String() string {
	return t.Descriptor()
}

// ParseDescriptor parses a url#size descriptor back into a Target.
// The size is taken after the last separator so URLs carrying a
// fragment survive the round trip.
func ParseDescriptor(descriptor string) (Target, error) {
	idx := strings.LastIndex(descriptor, descriptorSeparator)
	if idx <= 0 || idx == len(descriptor)-1 {
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidDescriptor, descriptor)
	}
	return Target{URL: descriptor[:idx], Size: descriptor[idx+1:]}, nil
}

// ValidateScreenSize reports whether size is acceptable as a screen size.
func ValidateScreenSize(size string) error {
	if strings.TrimSpace(size) == "" {
		return fmt.Errorf("%w: empty size", ErrNoScreenSizes)
	}
	if strings.ContainsAny(size, "xX") {
		return fmt.Errorf("%w: %q", ErrLegacyScreenSize, size)
	}
	return nil
}

// Enumerate expands urls and sizes into the ordered cross product of targets:
// every size of the first URL, then every size of the second, and so on.
//
// Validation happens before anything is produced, so a configuration error
// never yields a partial target list.
func Enumerate(urls, sizes []string) ([]Target, error) {
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	if len(sizes) == 0 {
		return nil, ErrNoScreenSizes
	}
	for _, size := range sizes {
		if err := ValidateScreenSize(size); err != nil {
			return nil, err
		}
	}

	targets := make([]Target, 0, len(urls)*len(sizes))
	for _, url := range urls {
		for _, size := range sizes {
			targets = append(targets, Target{URL: url, Size: size})
		}
	}
	return targets, nil
}
