// Command mudra-control performs desktop actions for gesture bindings on
// macOS: media keys, volume, brightness and keystrokes via AppleScript.
//
//	actions:
//	  bindings:
//	    - gesture: next_track
//	      command: [mudra-control, media-next]
//	    - gesture: mode_toggle
//	      command: [mudra-control, keystroke, cmd+shift+d]
//
// The dispatcher's request arrives on stdin; a JSON response is written
// to stdout.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/ayusman/mudra/internal/dispatch"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "print the AppleScript instead of running it")
	flag.Parse()

	// The request is informational; commands run without one.
	var req dispatch.Request
	if data, err := io.ReadAll(os.Stdin); err == nil && len(data) > 0 {
		json.Unmarshal(data, &req)
	}

	script, err := scriptFor(flag.Args())
	if err != nil {
		writeResponse(dispatch.Response{Error: err.Error()})
		return
	}

	if *dryRun {
		data, _ := json.Marshal(map[string]any{"script": script, "gesture": req.Gesture})
		writeResponse(dispatch.Response{Success: true, Data: data})
		return
	}

	if err := runAppleScript(script); err != nil {
		writeResponse(dispatch.Response{Error: fmt.Sprintf("%s failed: %v", flag.Arg(0), err)})
		return
	}
	writeResponse(dispatch.Response{Success: true})
}

func writeResponse(resp dispatch.Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	cmd := exec.Command("osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
