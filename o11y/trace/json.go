// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc/codes"
)

// eventObject is an event in Trace Event Format.
// https://docs.google.com/document/d/1CvAClvFfyA5R-PhYUmn5OOQtYMH4h6I0nSsKchNAySU/preview
type eventObject struct {
	Name string         `json:"name"`
	Cat  string         `json:"cat,omitempty"`
	Ph   string         `json:"ph"`
	Ts   int64          `json:"ts"`
	Dur  int64          `json:"dur,omitempty"`
	Pid  int            `json:"pid"`
	Tid  int            `json:"tid"`
	Args map[string]any `json:"args,omitempty"`
}

// WriteJSON writes spans as a JSON array in Trace Event Format,
// viewable in chrome://tracing or Perfetto.
// Timestamps are relative to start. Attribute "tid" of a span is used
// as thread id of the event.
func WriteJSON(w io.Writer, start time.Time, spans []SpanData) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "[\n")
	for i, sd := range spans {
		ev := eventObject{
			Name: sd.Name,
			Cat:  "cdeps",
			Ph:   "X",
			Ts:   sd.Start.Sub(start).Microseconds(),
			Dur:  sd.Duration().Microseconds(),
			Pid:  1,
			Args: make(map[string]any),
		}
		for k, v := range sd.Attrs {
			if k == "tid" {
				if tid, ok := v.(int); ok {
					ev.Tid = tid
					continue
				}
			}
			ev.Args[k] = v
		}
		if sd.Status != nil {
			ev.Args["status"] = codes.Code(sd.Status.GetCode()).String()
			ev.Args["error"] = sd.Status.GetMessage()
		}
		if len(ev.Args) == 0 {
			ev.Args = nil
		}
		buf, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintf(bw, ",\n")
		}
		bw.Write(buf)
	}
	fmt.Fprintf(bw, "\n]\n")
	return bw.Flush()
}
