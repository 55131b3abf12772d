// Package settings provides typed, observable settings backed by a JSON
// document.
//
// A Manager owns one JSON document and a registry of SettingData nodes, one
// per JSON Pointer path. Setting[T] handles read and write typed values
// through those nodes, cache what they read, and subscribe to updates.
// Documents are saved atomically through a temporary file with rotating
// backups (see package backup).
//
// Handles refer to their node weakly and nodes refer to their manager
// weakly, so either side may go away first. A handle whose node was removed
// or whose manager was closed keeps returning its last cached value (or its
// default) and reports ErrExpired on writes.
//
// Basic usage:
//
//	m := settings.NewManager(settings.WithPath("settings.json"))
//	if err := m.Load(); err != nil && !errors.Is(err, settings.ErrCannotOpenFile) {
//		return err
//	}
//	tabSize := settings.NewSettingWithDefault(m, "/editor/tabSize", 4)
//	tabSize.Connect(func(v int, args settings.SignalArgs) {
//		log.Printf("tab size is now %d (%s)", v, args.Source)
//	}, false)
//	_ = tabSize.Set(8)
//	_ = m.Save()
//
// Building with the settings_strict tag makes Value panic on errors that
// are otherwise reported through Get.
package settings
