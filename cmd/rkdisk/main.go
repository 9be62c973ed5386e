// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

// rkdisk operates on RKDOS floppy images: add, extract, delete, list,
// format, and attribute subcommands. It is the completed version of the
// kong-tagged command structs the disk tool started migrating to (see
// the original top-level cmd package's SDCmd and FiletypesCmd) — here
// actually wired up behind kong.Parse instead of sitting unused beside
// a cobra root command.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/spf13/viper"

	"github.com/vpyk/rk86tools/rkerrors"
	"github.com/vpyk/rk86tools/rkfs"
	"github.com/vpyk/rk86tools/rkhelpers"
	"github.com/vpyk/rk86tools/rkimage"
	"github.com/vpyk/rk86tools/rktypes"
)

// CLI is the full rkdisk command surface: image add/extract/delete/list/
// format/attr, per SPEC_FULL.md §6's disk-tool contract.
type CLI struct {
	rktypes.Globals

	Add     AddCmd     `kong:"cmd,name='a',help='Add a file to a disk image.'"`
	Extract ExtractCmd `kong:"cmd,name='x',help='Extract a file from a disk image.'"`
	Delete  DeleteCmd  `kong:"cmd,name='d',help='Delete a file from a disk image.'"`
	List    ListCmd    `kong:"cmd,name='l',help='List the files on a disk image.'"`
	Format  FormatCmd  `kong:"cmd,name='f',help='Format a blank disk image.'"`
	Attr    AttrCmd    `kong:"cmd,name='t',help='Change a file'"`
}

// AddCmd is the `a` command: write a local file into the image under an
// optional target name, with an optional load address and attributes.
type AddCmd struct {
	Image  string `kong:"arg,required,type='path',help='Disk image to modify.'"`
	Source string `kong:"arg,required,type='path',help='Local file to add.'"`
	Target string `kong:"arg,optional,help='Name to give the file on the image; defaults to the source file name.'"`

	Addr      string `kong:"name='addr',short='a',default='0',help='Load address, in hex.'"`
	Overwrite bool   `kong:"name='overwrite',short='o',help='Overwrite an existing file of the same name.'"`
	ReadOnly  bool   `kong:"name='readonly',short='r',help='Mark the file read-only.'"`
	Hidden    bool   `kong:"name='hidden',short='h',help='Mark the file hidden.'"`
}

// Run the `a` command.
func (c *AddCmd) Run(g *rktypes.Globals) error {
	v, img, err := openVolume(c.Image)
	if err != nil {
		return err
	}

	data, err := rkhelpers.FileContentsOrStdIn(c.Source)
	if err != nil {
		return err
	}

	addr, err := rkhelpers.ParseHexAddr(c.Addr)
	if err != nil {
		return err
	}

	name := c.Target
	if name == "" {
		name = baseName(c.Source)
	}

	var attr byte
	if c.ReadOnly {
		attr |= rktypes.AttrReadOnly
	}
	if c.Hidden {
		attr |= rktypes.AttrHidden
	}

	fi := rktypes.FileInfo{
		Descriptor: rktypes.Descriptor{Name: name, LoadAddr: addr, Attr: attr},
		Data:       data,
	}
	if _, err := v.PutFile(fi, c.Overwrite); err != nil {
		return err
	}
	return saveVolume(img)
}

// ExtractCmd is the `x` command: read a named file off the image and
// write its raw contents to a local file (or stdout, via "-").
type ExtractCmd struct {
	Image  string `kong:"arg,required,type='path',help='Disk image to read.'"`
	Source string `kong:"arg,required,help='Name of the file on the image.'"`
	Target string `kong:"arg,optional,help='Local output file; defaults to stdout.'"`

	Overwrite bool `kong:"name='overwrite',short='o',help='Overwrite an existing local file.'"`
}

// Run the `x` command.
func (c *ExtractCmd) Run(g *rktypes.Globals) error {
	v, _, err := openVolume(c.Image)
	if err != nil {
		return err
	}
	fi, err := v.GetFile(c.Source)
	if err != nil {
		return err
	}
	target := c.Target
	if target == "" {
		target = "-"
	}
	return rkhelpers.WriteOutput(target, fi.Data, c.Overwrite)
}

// DeleteCmd is the `d` command.
type DeleteCmd struct {
	Image  string `kong:"arg,required,type='path',help='Disk image to modify.'"`
	Source string `kong:"arg,required,help='Name of the file to delete.'"`
}

// Run the `d` command.
func (c *DeleteCmd) Run(g *rktypes.Globals) error {
	v, img, err := openVolume(c.Image)
	if err != nil {
		return err
	}
	deleted, err := v.Delete(c.Source)
	if err != nil {
		return err
	}
	if !deleted {
		return rkerrors.FileNotFoundf("file not found: %s", c.Source)
	}
	return saveVolume(img)
}

// ListCmd is the `l` command: print the catalog.
type ListCmd struct {
	Image string `kong:"arg,required,type='path',help='Disk image to read.'"`
	Brief bool   `kong:"name='brief',short='b',help='Print names only.'"`
}

// Run the `l` command.
func (c *ListCmd) Run(g *rktypes.Globals) error {
	v, _, err := openVolume(c.Image)
	if err != nil {
		return err
	}
	entries, err := v.Catalog()
	if err != nil {
		return err
	}
	if c.Brief {
		for _, d := range entries {
			fmt.Println(d.Name)
		}
		return nil
	}
	for _, d := range entries {
		flags := "--"
		if d.ReadOnly() {
			flags = "r" + flags[1:]
		}
		if d.Hidden() {
			flags = flags[:1] + "h"
		}
		fmt.Printf("%-13s %04X %6d %s\n", d.Name, d.LoadAddr, d.Size, flags)
	}
	fmt.Printf("\n%d bytes free, %d directory entries free\n", v.FreeSectors()*rkfs.MaxDataLen, v.FreeDirEntries())
	return nil
}

// FormatCmd is the `f` command: lay down a blank filesystem.
type FormatCmd struct {
	Image     string `kong:"arg,required,type='path',help='Disk image to create or overwrite.'"`
	NoConfirm bool   `kong:"name='yes',short='y',help='Do not prompt for confirmation.'"`
	DirSize   int    `kong:"name='dirsize',short='s',default='${default_dirsize}',help='Directory chain length, 1..99.'"`
}

// Run the `f` command.
func (c *FormatCmd) Run(g *rktypes.Globals) error {
	if !c.NoConfirm {
		if !confirm(fmt.Sprintf("Format %q, destroying its contents? [y/N] ", c.Image)) {
			return nil
		}
	}
	img, err := rkimage.Open(c.Image, rkimage.WriteCreate)
	if err != nil {
		return err
	}
	if _, err := rkfs.Format(img, c.DirSize); err != nil {
		return err
	}
	return saveVolume(img)
}

// AttrCmd is the `t` command: set a file's read-only/hidden bits.
type AttrCmd struct {
	Image    string `kong:"arg,required,type='path',help='Disk image to modify.'"`
	Source   string `kong:"arg,required,help='Name of the file to change.'"`
	ReadOnly bool   `kong:"name='readonly',short='r',help='Set the read-only attribute.'"`
	Hidden   bool   `kong:"name='hidden',short='h',help='Set the hidden attribute.'"`
}

// Run the `t` command.
func (c *AttrCmd) Run(g *rktypes.Globals) error {
	v, img, err := openVolume(c.Image)
	if err != nil {
		return err
	}
	var attr byte
	if c.ReadOnly {
		attr |= rktypes.AttrReadOnly
	}
	if c.Hidden {
		attr |= rktypes.AttrHidden
	}
	if err := v.SetAttributes(c.Source, attr); err != nil {
		return err
	}
	return saveVolume(img)
}

func openVolume(path string) (*rkfs.Volume, *rkimage.Image, error) {
	img, err := rkimage.Open(path, rkimage.ReadWrite)
	if err != nil {
		return nil, nil, err
	}
	v, err := rkfs.Open(img)
	if err != nil {
		return nil, nil, err
	}
	return v, img, nil
}

func saveVolume(img *rkimage.Image) error {
	return img.Flush()
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		path = path[i+1:]
	}
	return path
}

func confirm(prompt string) bool {
	fmt.Fprint(os.Stderr, prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

func main() {
	// .rk86toolsrc, if present, supplies a default directory size
	// ("dirsize") for the f command, so it need not be given on every
	// invocation. No other setting is read from it here.
	viper.SetConfigName(".rk86toolsrc")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig()

	defaultDirSize := "4"
	if viper.IsSet("dirsize") {
		defaultDirSize = viper.GetString("dirsize")
	}

	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("rkdisk"),
		kong.Description("Operate on RKDOS floppy disk images."),
		kong.Vars{"default_dirsize": defaultDirSize},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := ctx.Run(&cli.Globals); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
