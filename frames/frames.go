// Package frames provides the frame registry for application shells: each
// registered app contributes an ordered list of navigable frames, a
// navigator handle that performs the actual stack manipulation, and an
// optional per-frame navigation override. The registry itself never renders
// or navigates; it resolves frames to handles and leaves the rest to the
// collaborators that registered them.
package frames

// Frame describes one navigable destination owned by an app. Frames are
// identified by pointer: the registry and any flow definitions that include
// a frame hold the same *Frame, so a frame-level change is visible
// everywhere the frame is referenced. IDs only need to be unique within
// their app's frame list.
type Frame struct {
	// ID identifies the frame within its app.
	ID string `json:"id" yaml:"id"`

	// Name is the human-readable title, matched by search.
	Name string `json:"name" yaml:"name"`

	// Description is optional explanatory text, matched by search.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Tags are optional search keywords.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Component is the opaque render payload handed back to the shell.
	// The registry never inspects it.
	Component interface{} `json:"-" yaml:"-"`

	// OnNavigate, when set, replaces the default navigation action for
	// this frame. See Registry.NavigateToFrame.
	OnNavigate NavigationHandler `json:"-" yaml:"-"`
}

// AppFrames is one app's registered frame set. Entries are created and
// replaced wholesale; frames from a superseded registration become
// unreachable through the registry.
type AppFrames struct {
	AppID          string   `json:"appId"`
	AppName        string   `json:"appName"`
	Frames         []*Frame `json:"frames"`
	InitialFrameID string   `json:"initialFrameId"`
}

// FrameMatch is a single search hit: the frame plus the app it belongs to.
type FrameMatch struct {
	AppID   string `json:"appId"`
	AppName string `json:"appName"`
	Frame   *Frame `json:"frame"`
}

// Navigator is the per-app navigation stack contract, implemented entirely
// outside the registry by whatever drives the app's UI.
type Navigator interface {
	// Navigate pushes the named destination onto the stack.
	Navigate(name string, params map[string]interface{})

	// GoBack pops the current destination.
	GoBack()

	// Replace swaps the current destination for the named one.
	Replace(name string, params map[string]interface{})

	// Reset replaces the entire stack with the identified frame as root.
	Reset(frameID string)
}

// NavigationHandler is a frame's custom navigation action. It receives the
// app's registered Navigator, or nil when no navigator is registered, and
// must tolerate nil.
type NavigationHandler func(nav Navigator)

// NavigationEvent identifies one NavigateToFrame call.
type NavigationEvent struct {
	AppID   string `json:"appId"`
	FrameID string `json:"frameId"`
}

// NavigationCallback observes every NavigateToFrame call, whether or not a
// navigation action was performed. At most one callback is active at a
// time.
type NavigationCallback func(event NavigationEvent)
