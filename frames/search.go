package frames

import "strings"

// SearchFrames returns every frame whose name, description, or any tag
// contains query, ignoring case. An empty query matches every frame.
// Results follow app registration order, then frame order within each app;
// a frame matching on several fields appears once.
func (r *Registry) SearchFrames(query string) []FrameMatch {
	needle := strings.ToLower(query)
	var matches []FrameMatch
	for _, entry := range r.store.All() {
		for _, frame := range entry.Frames {
			if frame == nil || !frameMatches(frame, needle) {
				continue
			}
			matches = append(matches, FrameMatch{
				AppID:   entry.AppID,
				AppName: entry.AppName,
				Frame:   frame,
			})
		}
	}
	return matches
}

func frameMatches(frame *Frame, needle string) bool {
	if strings.Contains(strings.ToLower(frame.Name), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(frame.Description), needle) {
		return true
	}
	for _, tag := range frame.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}
