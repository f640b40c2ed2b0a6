// Icepack CLI - packs directory trees into ICE asset archives and reads
// them back.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/chazu/glacier/archive"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	var err error
	switch cmd := flag.Arg(0); cmd {
	case "pack":
		err = runPack(flag.Args()[1:])
	case "list":
		err = runList(flag.Args()[1:])
	case "unpack":
		err = runUnpack(flag.Args()[1:])
	case "extract":
		err = runExtract(flag.Args()[1:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "icepack: unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "icepack: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: icepack <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  pack <srcdir> <out.ice>        Pack a directory into an archive\n")
	fmt.Fprintf(os.Stderr, "  list <archive.ice>             List archive entries\n")
	fmt.Fprintf(os.Stderr, "  unpack <archive.ice> <destdir> Extract every entry\n")
	fmt.Fprintf(os.Stderr, "  extract <archive.ice> <path>   Extract one entry\n")
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  icepack pack ./assets game.ice\n")
	fmt.Fprintf(os.Stderr, "  icepack list game.ice\n")
	fmt.Fprintf(os.Stderr, "  icepack extract game.ice maps/level1.ice -o level1.ice\n")
	fmt.Fprintf(os.Stderr, "\nPut an icepack.toml in the source directory to tune compression.\n")
}

// configureLogging maps -v counts to commonlog verbosity.
func configureLogging(verbosity int) {
	commonlog.Configure(verbosity, nil)
}

func runPack(args []string) error {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	verbose := fs.Int("v", 0, "Log verbosity (0-2)")
	fs.Parse(args)
	if fs.NArg() != 2 {
		return fmt.Errorf("pack wants <srcdir> <out.ice>, got %d arguments", fs.NArg())
	}
	configureLogging(*verbose)

	srcDir, outPath := fs.Arg(0), fs.Arg(1)
	cfg, err := archive.LoadConfig(srcDir)
	if err != nil {
		return err
	}
	return archive.Pack(srcDir, outPath, cfg)
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	long := fs.Bool("l", false, "Show sizes and flags")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("list wants <archive.ice>, got %d arguments", fs.NArg())
	}

	r, err := archive.OpenArchive(fs.Arg(0))
	if err != nil {
		return err
	}
	defer r.Close()

	for _, e := range r.List() {
		if *long {
			mark := " "
			if e.Flags&archive.FlagBerg != 0 {
				mark = "c"
			}
			fmt.Printf("%10d %s %s\n", e.Size, mark, e.Path)
		} else {
			fmt.Println(e.Path)
		}
	}
	if m := r.Meta(); m != nil && *long {
		fmt.Printf("# %d entries (%d compressed), format %d, packed by %s\n",
			m.Entries, m.Compressed, m.Format, m.Tool)
	}
	return nil
}

func runUnpack(args []string) error {
	fs := flag.NewFlagSet("unpack", flag.ExitOnError)
	verbose := fs.Int("v", 0, "Log verbosity (0-2)")
	fs.Parse(args)
	if fs.NArg() != 2 {
		return fmt.Errorf("unpack wants <archive.ice> <destdir>, got %d arguments", fs.NArg())
	}
	configureLogging(*verbose)

	r, err := archive.OpenArchive(fs.Arg(0))
	if err != nil {
		return err
	}
	defer r.Close()

	destDir := fs.Arg(1)
	for _, e := range r.List() {
		if err := writeEntry(r, e.Path, filepath.Join(destDir, filepath.FromSlash(e.Path))); err != nil {
			return err
		}
	}
	return nil
}

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	out := fs.String("o", "", "Output file (default: stdout)")
	fs.Parse(args)
	if fs.NArg() != 2 {
		return fmt.Errorf("extract wants <archive.ice> <path>, got %d arguments", fs.NArg())
	}

	r, err := archive.OpenArchive(fs.Arg(0))
	if err != nil {
		return err
	}
	defer r.Close()

	if *out == "" {
		src, err := r.Open(fs.Arg(1))
		if err != nil {
			return err
		}
		_, err = io.Copy(os.Stdout, src)
		return err
	}
	return writeEntry(r, fs.Arg(1), *out)
}

// writeEntry copies one archive entry to a file on disk.
func writeEntry(r *archive.Reader, path, dest string) error {
	src, err := r.Open(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
