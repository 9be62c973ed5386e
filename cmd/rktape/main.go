// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

// rktape wraps a raw binary payload in one of the ten RK86-family tape
// container formats. It mirrors bin2tape's flat flag set (-t/-a/-r/-n)
// as a single cobra root command rather than a subcommand tree, since
// there's exactly one operation. Grounded on cmd/root.go and cmd/put.go.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vpyk/rk86tools/rkhelpers"
	"github.com/vpyk/rk86tools/tape"
)

var (
	formatTag    string
	loadAddrHex  string
	runAddrHex   string
	intFileName  string
	noIntName    bool
	outputIsSpec bool
)

// RootCmd is rktape's single command: read the input file, wrap it, and
// write the result.
var RootCmd = &cobra.Command{
	Use:   "rktape input_file [output_file]",
	Short: "Wrap a binary file in an RK86-family tape container format",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args)
	},
}

func init() {
	RootCmd.Flags().StringVarP(&formatTag, "format", "t", "rk", "output format (rk, rkr, rkp, rka, rkm, rk8, rku, rk4, rkl, rke, rks, rko, bru, ord, cas, lvt)")
	RootCmd.Flags().StringVarP(&loadAddrHex, "addr", "a", "", "load address, in hex (default 0000, or 0100 for .com input files)")
	RootCmd.Flags().StringVarP(&runAddrHex, "run", "r", "", "run address for cas and lvt formats, in hex (default: load address)")
	RootCmd.Flags().StringVarP(&intFileName, "name", "n", "", "internal file name for bru, rko, cas, and lvt (default: input file name)")
	RootCmd.Flags().BoolVar(&noIntName, "n-", false, "omit the internal file name entirely")

	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.AddConfigPath(".")
	viper.SetConfigName(".rk86toolsrc")
	if err := viper.ReadInConfig(); err == nil {
		if viper.IsSet("format") {
			formatTag = viper.GetString("format")
		}
	}
}

func run(args []string) error {
	format, ok := tape.TagToFormat(formatTag)
	if !ok {
		return fmt.Errorf("invalid format %q", formatTag)
	}

	inputFile := args[0]
	body, err := rkhelpers.FileContentsOrStdIn(inputFile)
	if err != nil {
		return fmt.Errorf("reading %q: %w", inputFile, err)
	}

	var loadAddr uint16
	if loadAddrHex != "" {
		loadAddr, err = rkhelpers.ParseHexAddr(loadAddrHex)
		if err != nil {
			return err
		}
	} else if ext := strings.ToLower(filepath.Ext(inputFile)); ext == ".com" {
		loadAddr = 0x100
	}

	runAddr := loadAddr
	if runAddrHex != "" {
		runAddr, err = rkhelpers.ParseHexAddr(runAddrHex)
		if err != nil {
			return err
		}
	}

	base := filepath.Base(inputFile)
	nameSource := base
	if intFileName != "" {
		nameSource = intFileName
	}

	var intName []byte
	if n := tape.IntNameLen(format); n > 0 && !noIntName {
		intName = tape.MakeIntName(nameSource, n)
	} else if n > 0 {
		intName = make([]byte, n)
		for i := range intName {
			intName[i] = 0x20
		}
	}

	out, err := tape.Encode(body, format, loadAddr, runAddr, intName)
	if err != nil {
		return err
	}

	outputFile := ""
	if len(args) == 2 {
		outputFile = args[1]
	} else {
		trimmed := strings.TrimSuffix(base, filepath.Ext(base))
		outputFile = trimmed + "." + formatTag
	}

	return rkhelpers.WriteOutput(outputFile, out, true)
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
