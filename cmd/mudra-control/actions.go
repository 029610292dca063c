package main

import (
	"fmt"
	"strings"
)

// keyCodes maps actions to System Events key codes.
var keyCodes = map[string]int{
	"brightness-up":    144,
	"brightness-down":  145,
	"media-play-pause": 100,
	"media-next":       101,
	"media-prev":       98,
}

var volumeScripts = map[string]string{
	"volume-up":   `set volume output volume ((output volume of (get volume settings)) + 10)`,
	"volume-down": `set volume output volume ((output volume of (get volume settings)) - 10)`,
	"volume-mute": `set volume output muted (not (output muted of (get volume settings)))`,
}

// modifierMap maps user-friendly modifier names to AppleScript equivalents.
var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

// scriptFor returns the AppleScript for an action and its arguments.
func scriptFor(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("no action given")
	}

	action := args[0]
	if s, ok := volumeScripts[action]; ok {
		return s, nil
	}
	if code, ok := keyCodes[action]; ok {
		return fmt.Sprintf("tell application \"System Events\"\n\tkey code %d\nend tell", code), nil
	}
	if action == "keystroke" {
		if len(args) < 2 || args[1] == "" {
			return "", fmt.Errorf("keystroke needs a key, e.g. cmd+shift+d")
		}
		return keystrokeScript(args[1])
	}
	return "", fmt.Errorf("unknown action: %s", action)
}

// keystrokeScript turns a chord like "cmd+shift+d" into a keystroke
// script. The last element is the key.
func keystrokeScript(chord string) (string, error) {
	parts := strings.Split(chord, "+")
	key := parts[len(parts)-1]
	if key == "" {
		return "", fmt.Errorf("invalid chord %q", chord)
	}

	var mods []string
	for _, m := range parts[:len(parts)-1] {
		apple, ok := modifierMap[strings.ToLower(m)]
		if !ok {
			return "", fmt.Errorf("unknown modifier %q", m)
		}
		mods = append(mods, apple)
	}

	if len(mods) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, key), nil
	}
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s" using {%s}`, key, strings.Join(mods, ", ")), nil
}
