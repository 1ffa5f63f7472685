//go:build !ios && !android && (amd64 || arm64)

package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/obinnaokechukwu/framegrab"
)

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print framegrab and FFmpeg library versions",
		Action: func(c *cli.Context) error {
			w := c.App.Writer
			fmt.Fprintf(w, "framegrab %s\n", version)
			v, err := framegrab.LibraryVersions()
			if err != nil {
				fmt.Fprintf(w, "ffmpeg libraries unavailable: %v\n", err)
				return nil
			}
			fmt.Fprintf(w, "libavutil   %s\nlibavcodec  %s\nlibavformat %s\nlibswscale  %s\n",
				v.AVUtil, v.AVCodec, v.AVFormat, v.SWScale)
			return nil
		},
	}
}
