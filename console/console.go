/*
 * gnc-motion - CNC motion-control firmware
 *
 * Copyright 2026, gnc-motion contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package console provides a local interactive front end sharing the
// transport package's line/realtime dispatch, for bench use without a
// host sender (grounded on the teacher's command/reader.ConsoleReader,
// which wraps peterh/liner the same way).
package console

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/peterh/liner"
	"github.com/rcornwell/gnc-motion/executor"
	"github.com/rcornwell/gnc-motion/transport"
)

// words completes over the `$`-settings prefixes and the common G/M
// modal words, the console-equivalent of the teacher's device/option
// completion table.
var words = []string{
	"$$", "$#", "$G", "$I", "$N", "$H", "$C", "$X", "$SLP",
	"$RST=*", "$RST=$", "$RST=#", "$J=",
	"G0", "G1", "G2", "G3", "G4", "G17", "G18", "G19", "G20", "G21",
	"G28", "G30", "G53", "G54", "G55", "G56", "G57", "G58", "G59",
	"G90", "G91", "G92", "G93", "G94",
	"M0", "M2", "M3", "M4", "M5", "M8", "M9", "M30",
}

func complete(line string) []string {
	upper := strings.ToUpper(line)
	var matches []string
	for _, w := range words {
		if strings.HasPrefix(w, upper) {
			matches = append(matches, w)
		}
	}
	sort.Strings(matches)
	return matches
}

// Run drives an interactive prompt against ex until the user aborts
// with Ctrl-D/Ctrl-C. Each line is submitted the same way a transport
// connection would submit it, so `$`-commands, G-code, and jog lines
// all behave identically from the console.
func Run(ex *executor.Executor) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(complete)

	for {
		input, err := line.Prompt("gnc> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return
			}
			slog.Error("console: read error", "err", err)
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.EqualFold(input, "quit") || strings.EqualFold(input, "exit") {
			return
		}

		// A bare realtime character typed at the prompt (no line
		// terminal to smuggle it past, unlike the transport path) is
		// applied directly rather than submitted to the parser.
		if len(input) == 1 && transport.IsRealtimeByte(input[0]) {
			transport.NewAssembler(ex).Feed([]byte(input))
			continue
		}

		resp := ex.Submit(transport.ClassifyLine(input))
		fmt.Println(resp)
	}
}
