// file: cmd/main.go

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gorlik/dlplus/cmd/add"
	"github.com/gorlik/dlplus/cmd/create"
	"github.com/gorlik/dlplus/cmd/delete"
	"github.com/gorlik/dlplus/cmd/extract"
	"github.com/gorlik/dlplus/cmd/info"
	"github.com/gorlik/dlplus/cmd/list"
	"github.com/gorlik/dlplus/cmd/serve"
	"github.com/gorlik/dlplus/pkg/fname"
)

// version is stamped by the build.
var version = "dev"

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	opts := serve.DefaultOptions()
	var (
		verbose    int
		configFile string
	)

	root := &cobra.Command{
		Use:     "dlplus [share-dir [share-dir2]]",
		Short:   "Tandy Portable Disk Drive emulator",
		Version: version,
		Long: `dlplus emulates a TPDD1 or TPDD2 drive over a serial line, serving a
host directory, a raw disk image, or both to a vintage client. Without
arguments it shares the current directory on the first USB serial
adapter it finds.`,
		Args:         cobra.MaximumNArgs(2),
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			switch {
			case verbose >= 2:
				log.SetLevel(log.TraceLevel)
			case verbose == 1:
				log.SetLevel(log.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := serve.LoadDefaults(configFile)
			if err != nil {
				return err
			}
			mergeUnchanged(cmd, opts, resolved)
			if len(args) > 0 {
				opts.Paths = args
			}
			return serve.Run(opts)
		},
	}

	f := root.Flags()
	f.StringVarP(&opts.Device, "device", "d", opts.Device,
		"serial device, a /dev name or - for stdio")
	f.IntVarP(&opts.Baud, "baud", "s", opts.Baud, "serial speed")
	f.BoolVarP(&opts.RTSCTS, "rtscts", "r", opts.RTSCTS, "RTS/CTS flow control")
	f.IntVarP(&opts.Model, "model", "m", opts.Model, "drive model, 1 or 2")
	f.StringVarP(&opts.Profile, "profile", "c", opts.Profile,
		fmt.Sprintf("client filename profile (%s) or a BASE.EXTp width spec",
			strings.Join(fname.Names(), ", ")))
	f.StringVarP(&opts.Attr, "attr", "a", opts.Attr, "default attribute byte")
	f.BoolVarP(&opts.DME, "dme", "e", opts.DME, "answer the directory handshake")
	f.BoolVar(&opts.Tildes, "tildes", opts.Tildes, "mark truncated client names")
	f.BoolVarP(&opts.Upcase, "upcase", "u", opts.Upcase, "render client names upper case")
	f.BoolVar(&opts.Magic, "tsload", opts.Magic, "serve loader names from the library directory")
	f.BoolVar(&opts.FDCMode, "fdc", opts.FDCMode, "power up in FDC mode")
	f.StringArrayVarP(&opts.Paths, "path", "p", nil, "share directory, twice for bank 1")
	f.StringVarP(&opts.Image, "image", "i", opts.Image, "raw disk image file")
	f.StringVar(&opts.ROM, "rom", opts.ROM, "drive cpu rom dump, served to memory reads")
	f.StringVar(&opts.LibDir, "libdir", opts.LibDir, "loader library directory")
	f.StringVarP(&opts.Bootstrap, "bootstrap", "b", opts.Bootstrap,
		"send a loader program instead of serving")
	f.IntVarP(&opts.PacingMS, "pacing-ms", "z", opts.PacingMS,
		"bootstrap delay between bytes in milliseconds")

	root.PersistentFlags().CountVarP(&verbose, "verbose", "v",
		"more logging, twice for tracing")
	root.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default ~/.dlplus.yaml)")

	root.AddCommand(imageCommand())
	return root
}

// mergeUnchanged fills every option the command line left alone from
// the resolved file and environment settings, so the precedence ends
// up flag, environment, file, default.
func mergeUnchanged(cmd *cobra.Command, opts, resolved *serve.Options) {
	f := cmd.Flags()
	if !f.Changed("device") {
		opts.Device = resolved.Device
	}
	if !f.Changed("baud") {
		opts.Baud = resolved.Baud
	}
	if !f.Changed("rtscts") {
		opts.RTSCTS = resolved.RTSCTS
	}
	if !f.Changed("model") {
		opts.Model = resolved.Model
	}
	if !f.Changed("profile") {
		opts.Profile = resolved.Profile
	}
	if !f.Changed("attr") {
		opts.Attr = resolved.Attr
	}
	if !f.Changed("dme") {
		opts.DME = resolved.DME
	}
	if !f.Changed("tildes") {
		opts.Tildes = resolved.Tildes
	}
	if !f.Changed("upcase") {
		opts.Upcase = resolved.Upcase
	}
	if !f.Changed("tsload") {
		opts.Magic = resolved.Magic
	}
	if !f.Changed("fdc") {
		opts.FDCMode = resolved.FDCMode
	}
	if !f.Changed("path") && len(resolved.Paths) > 0 {
		opts.Paths = resolved.Paths
	}
	if !f.Changed("image") {
		opts.Image = resolved.Image
	}
	if !f.Changed("rom") {
		opts.ROM = resolved.ROM
	}
	if !f.Changed("libdir") {
		opts.LibDir = resolved.LibDir
	}
	if !f.Changed("pacing-ms") {
		opts.PacingMS = resolved.PacingMS
	}
	// these have no flags
	opts.AttrName = resolved.AttrName
	opts.RootLabel = resolved.RootLabel
	opts.ParentLabel = resolved.ParentLabel
	opts.DirLabel = resolved.DirLabel
}

func imageCommand() *cobra.Command {
	img := &cobra.Command{
		Use:   "image",
		Short: "Inspect and edit raw disk images",
	}
	img.AddCommand(
		createCommand(),
		infoCommand(),
		listCommand(),
		extractCommand(),
		addCommand(),
		deleteCommand(),
	)
	return img
}

func createCommand() *cobra.Command {
	opts := create.DefaultCreateOptions()
	cmd := &cobra.Command{
		Use:   "create IMAGE",
		Short: "Create a fresh formatted disk image",
		Long: `Create writes a blank formatted image. A .pdd1 or .pdd2 name picks
the drive model, otherwise the model option decides.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return create.Create(args[0], opts)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&opts.Model, "model", "m", opts.Model, "drive model when the name does not pick one")
	f.BoolVar(&opts.FDC, "fdc", opts.FDC, "FDC format instead of a filesystem")
	f.IntVar(&opts.SizeCode, "size-code", opts.SizeCode, "logical size code for an FDC format")
	f.BoolVarP(&opts.Force, "force", "f", opts.Force, "overwrite an existing image")
	f.BoolVarP(&opts.Quiet, "quiet", "q", opts.Quiet, "suppress non-error output")
	return cmd
}

func infoCommand() *cobra.Command {
	opts := info.DefaultInfoOptions()
	cmd := &cobra.Command{
		Use:   "info IMAGE",
		Short: "Report the geometry and health of a disk image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return info.Info(args[0], opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.JSON, "json", opts.JSON, "output in JSON format")
	f.BoolVarP(&opts.Quiet, "quiet", "q", opts.Quiet, "report issues only")
	return cmd
}

func listCommand() *cobra.Command {
	opts := list.DefaultListOptions()
	cmd := &cobra.Command{
		Use:   "list IMAGE",
		Short: "List the records of a disk image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return list.List(args[0], opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.JSON, "json", opts.JSON, "output in JSON format")
	f.BoolVarP(&opts.All, "all", "a", opts.All, "include untouched records")
	f.IntVar(&opts.Start, "start", opts.Start, "first record to list")
	f.IntVar(&opts.Count, "count", opts.Count, "records to list, 0 for the rest")
	f.BoolVarP(&opts.Quiet, "quiet", "q", opts.Quiet, "suppress non-error output")
	return cmd
}

func extractCommand() *cobra.Command {
	opts := extract.DefaultExtractOptions()
	cmd := &cobra.Command{
		Use:   "extract IMAGE",
		Short: "Copy a record's data or ID out of a disk image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return extract.Extract(args[0], opts)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&opts.Record, "record", "r", opts.Record, "physical record to read")
	f.IntVarP(&opts.Logical, "logical", "l", opts.Logical,
		"logical sector counted from 1, 0 for the whole data area")
	f.BoolVar(&opts.ID, "id", opts.ID, "extract the ID field instead of data")
	f.StringVarP(&opts.Output, "output", "o", opts.Output, "output file, - for stdout")
	f.BoolVarP(&opts.Quiet, "quiet", "q", opts.Quiet, "suppress non-error output")
	return cmd
}

func addCommand() *cobra.Command {
	opts := add.DefaultAddOptions()
	cmd := &cobra.Command{
		Use:   "add IMAGE",
		Short: "Write data into one record of a disk image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return add.Add(args[0], opts)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&opts.Record, "record", "r", opts.Record, "physical record to write")
	f.IntVarP(&opts.Logical, "logical", "l", opts.Logical,
		"logical sector counted from 1, 0 to write from the start of data")
	f.StringVarP(&opts.Input, "input", "i", opts.Input, "input file, - for stdin")
	f.BoolVarP(&opts.Quiet, "quiet", "q", opts.Quiet, "suppress non-error output")
	return cmd
}

func deleteCommand() *cobra.Command {
	opts := delete.DefaultDeleteOptions()
	cmd := &cobra.Command{
		Use:   "delete IMAGE [RECORD]",
		Short: "Clear records of a disk image",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			record := -1
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("record %q is not a number", args[1])
				}
				record = n
			} else if !opts.All {
				return fmt.Errorf("name a record to clear, or pass --all")
			}
			return delete.Delete(args[0], record, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.All, "all", opts.All, "clear every record")
	f.IntVar(&opts.SizeCode, "size-code", opts.SizeCode, "size code left on cleared model 1 records")
	f.BoolVarP(&opts.Quiet, "quiet", "q", opts.Quiet, "suppress non-error output")
	return cmd
}
