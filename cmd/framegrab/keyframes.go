//go:build !ios && !android && (amd64 || arm64)

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/obinnaokechukwu/framegrab/internal/objstore"
	"github.com/obinnaokechukwu/framegrab/keyframes"
)

func keyframesCommand() *cli.Command {
	return &cli.Command{
		Name:      "keyframes",
		Usage:     "list the keyframes of an MP4 video track",
		ArgsUsage: "INPUT",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "at", Usage: "report the keyframe a seek to this time lands on"},
			&cli.BoolFlag{Name: "json", Usage: "print JSON"},
		},
		Action: runKeyframes,
	}
}

func runKeyframes(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("keyframes: exactly one INPUT is required", 2)
	}
	input := c.Args().First()

	ix, err := buildIndex(c, input)
	if err != nil {
		return err
	}
	w := c.App.Writer

	if c.IsSet("at") {
		t := c.Float64("at")
		k, ok := ix.SeekLanding(t)
		if !ok {
			return fmt.Errorf("%s: no keyframes", input)
		}
		if c.Bool("json") {
			return json.NewEncoder(w).Encode(map[string]any{
				"time":            t,
				"keyframe":        k,
				"decode_distance": ix.DecodeDistance(t),
			})
		}
		fmt.Fprintf(w, "t=%g lands on sample %d at %.6fs, %.6fs to decode\n",
			t, k.Sample, k.Time, ix.DecodeDistance(t))
		return nil
	}

	if c.Bool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ix)
	}
	fmt.Fprintf(w, "track %d, %s, timescale %d, %d samples, %.3fs\n",
		ix.TrackID, ix.Codec, ix.Timescale, ix.Samples, ix.Duration)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SAMPLE\tPTS\tTIME")
	for _, k := range ix.Keyframes {
		fmt.Fprintf(tw, "%d\t%d\t%.6f\n", k.Sample, k.PTS, k.Time)
	}
	return tw.Flush()
}

func buildIndex(c *cli.Context, input string) (*keyframes.Index, error) {
	if !objstore.IsURL(input) {
		return keyframes.BuildFile(input)
	}
	rt, err := setup(c)
	if err != nil {
		return nil, err
	}
	store, err := objstore.New(rt.cfg.S3)
	if err != nil {
		return nil, err
	}
	data, err := store.Fetch(c.Context, input, 0)
	if err != nil {
		return nil, err
	}
	return keyframes.BuildBytes(data)
}
