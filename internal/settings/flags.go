package settings

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Flag tunes how a Setting writes its value.
type Flag uint8

const (
	// DoNotWriteToJSON keeps writes out of the document. The handle still
	// caches the value and observers are still notified.
	DoNotWriteToJSON Flag = 1 << iota
	// Remote detaches the setting from any manager. Its value lives in
	// memory only and is shared by clones of the handle.
	Remote
	// CompareBeforeSet skips writes that would not change the value.
	CompareBeforeSet
	// SaveInitialValue writes the default into the document on
	// construction when the path holds no value yet.
	SaveInitialValue

	// skipAutoSave writes without triggering SaveOnSettingChange. Bulk
	// writers set it and save once at the end.
	skipAutoSave Flag = 1 << 7
)

// String returns a string representation of the flags.
func (f Flag) String() string {
	var names []string
	if f&DoNotWriteToJSON != 0 {
		names = append(names, "do_not_write_to_json")
	}
	if f&Remote != 0 {
		names = append(names, "remote")
	}
	if f&CompareBeforeSet != 0 {
		names = append(names, "compare_before_set")
	}
	if f&SaveInitialValue != 0 {
		names = append(names, "save_initial_value")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Has reports whether every bit of flag is set.
func (f Flag) Has(flag Flag) bool {
	return f&flag == flag
}

func combine(flags []Flag) Flag {
	var f Flag
	for _, flag := range flags {
		f |= flag
	}
	return f
}

// SaveMethod controls when a manager saves on its own.
type SaveMethod uint8

const (
	// SaveManually never saves automatically.
	SaveManually SaveMethod = 0
	// SaveOnExit saves when the manager is closed.
	SaveOnExit SaveMethod = 1
	// SaveOnSettingChange saves after every successful write.
	SaveOnSettingChange SaveMethod = 2

	// SaveAllTheTime combines every automatic save.
	SaveAllTheTime = SaveOnExit | SaveOnSettingChange
)

// String returns a string representation of the save method.
func (s SaveMethod) String() string {
	switch s {
	case SaveManually:
		return "manual"
	case SaveOnExit:
		return "on_exit"
	case SaveOnSettingChange:
		return "on_change"
	case SaveAllTheTime:
		return "all_the_time"
	default:
		return "unknown"
	}
}

// Has reports whether the save method includes method.
func (s SaveMethod) Has(method SaveMethod) bool {
	return method != 0 && s&method == method
}

// Source tells observers why an update was delivered.
type Source uint8

const (
	// SourceUnset is the zero source; writes report it as SourceSetter.
	SourceUnset Source = iota
	// SourceSetter marks writes through a handle or manager.
	SourceSetter
	// SourceUnmarshal marks values delivered by a load.
	SourceUnmarshal
	// SourceOnConnect marks the immediate delivery of a new subscription.
	SourceOnConnect
	// SourceExternal marks values that came from outside the process, such
	// as imports, the environment or a file change.
	SourceExternal
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceUnset:
		return "unset"
	case SourceSetter:
		return "setter"
	case SourceUnmarshal:
		return "unmarshal"
	case SourceOnConnect:
		return "on_connect"
	case SourceExternal:
		return "external"
	default:
		return "unknown"
	}
}

// SignalArgs describes an update delivered to observers.
type SignalArgs struct {
	// Source is the reason for the update.
	Source Source
	// Path is the JSON Pointer of the updated setting.
	Path string
	// UserData is passed through unchanged from the writer.
	UserData any
}

// Update is the payload of a node's update signal.
type Update struct {
	// Value is the new JSON value.
	Value gjson.Result
	// Args describes the update.
	Args SignalArgs
}

// Change is delivered to manager-wide observers for every update.
type Change struct {
	// Path is the JSON Pointer of the updated setting.
	Path string
	// Value is the new JSON value.
	Value gjson.Result
	// Args describes the update.
	Args SignalArgs
}
