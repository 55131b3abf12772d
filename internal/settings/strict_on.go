//go:build settings_strict

package settings

const strictMode = true
