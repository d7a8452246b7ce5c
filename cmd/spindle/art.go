package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/linuxmatters/spindle/internal/artwork"
	"github.com/linuxmatters/spindle/internal/cli"
	"github.com/linuxmatters/spindle/internal/config"
	"github.com/linuxmatters/spindle/internal/container"
)

// ArtCmd exports the embedded cover picture
type ArtCmd struct {
	Input  string `arg:"" name:"input" help:"Audio file with an embedded picture"`
	Output string `arg:"" name:"output" help:"Output PNG file"`
	Size   int    `help:"Thumbnail edge length in pixels" default:"512"`
	Title  string `help:"Caption text (defaults to the title tag)"`
}

func (c *ArtCmd) Run(g *Globals) error {
	if err := validateInput(c.Input); err != nil {
		return err
	}

	rt := g.Runtime()
	rt.ThumbnailSize = c.Size
	if err := exportArtwork(c.Input, c.Output, c.Title, rt); err != nil {
		return err
	}
	cli.PrintSuccess(fmt.Sprintf("Done! Output: %s", c.Output))
	return nil
}

// exportArtwork writes the cover of input to output. Files without a
// picture get a captioned placeholder.
func exportArtwork(input, output, title string, rt *config.Runtime) error {
	ctx, err := container.Open(input)
	if err != nil {
		return err
	}
	defer func() {
		if err := ctx.Destroy(); err != nil {
			log.Warn("failed to close container", "err", err)
		}
	}()

	if title == "" {
		title = trackTitle(input, ctx.Metadata())
	}

	var pic []byte
	if s, ok := ctx.ImageStream(); ok {
		pic = s.Picture
		log.Debug("using embedded picture", "stream", s.Index, "mime", s.PictureMIME, "bytes", len(pic))
	} else {
		cli.PrintWarning("no embedded picture, rendering a placeholder")
	}

	img, err := artwork.Thumbnail(pic, title, rt)
	if err != nil {
		return fmt.Errorf("failed to render thumbnail: %w", err)
	}
	return artwork.Save(output, img)
}

// trackTitle prefers the artist and title tags and falls back to the file
// name.
func trackTitle(path string, md map[string]string) string {
	title := strings.TrimSpace(md["title"])
	if title == "" {
		return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if artist := strings.TrimSpace(md["artist"]); artist != "" {
		return artist + " - " + title
	}
	return title
}
