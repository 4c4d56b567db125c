// Package cli implements the safeloader command-line tool: flag
// parsing, subcommand dispatch, and the OS-backed collaborators
// (reader_writer.go) that satisfy the core package's injected-I/O
// boundary. The core safeloader package never imports "os".
package cli

import (
	"crypto/md5"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"safeloader"
	"safeloader/internal/platform"
)

func md5Func(data []byte) [16]byte {
	return md5.Sum(data)
}

func usage() {
	fmt.Fprintf(os.Stderr, `SafeLoader - TP-Link SafeLoader image tool

Usage: %s <flags>

  -i <file>
    Print the container's dialect, embedded partition table, and
    decoded soft-version for <file>.

  -x <file> -d <dir>
    Extract every embedded partition from <file> into <dir>, one file
    per partition.

  -z <file> -o <file>
    Re-layout <file>'s os-image and file-system payloads against its
    own embedded flash partition table, writing the result to the
    given output file.

  -B <board> -k <kernel> -r <rootfs> -o <file> [-V r<uint>] [-j] [-S]
    Build a factory image (or, with -S, a sysupgrade image) for
    <board> from <kernel> and <rootfs>.
    -V sets the numeric soft-version revision (r123 or a bare
       decimal).
    -j appends a jffs2 EOF marker to the root filesystem payload.
    -S builds a sysupgrade image instead of a factory image.

  -L
    List every registered board id, one per line.

  -t
    Combined with -i: also print the parsed flash partition table.

  -h
    Print this message.
`, os.Args[0])
	os.Exit(1)
}

func resolveClock() safeloader.Clock {
	raw, ok := os.LookupEnv("SOURCE_DATE_EPOCH")
	if !ok || raw == "" {
		return safeloader.SystemClock
	}
	epoch, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Fatalln("Error:", &safeloader.InvalidInputError{Msg: "invalid SOURCE_DATE_EPOCH: " + err.Error()})
	}
	return safeloader.FixedClock(time.Unix(epoch, 0).UTC())
}

// parseRevision accepts both spec.md's "r<uint>" form and a bare
// decimal (SPEC_FULL.md §9 supplement).
func parseRevision(s string) (uint32, error) {
	trimmed := strings.TrimPrefix(s, "r")
	v, err := strconv.ParseUint(trimmed, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid revision %q: %w", s, err)
	}
	return uint32(v), nil
}

// Main is the process entry point's sole logic; cmd/safeloader's
// main.go just calls cli.Main(os.Args).
func Main(args []string) {
	fs := flag.NewFlagSet(args[0], flag.ExitOnError)
	fs.Usage = usage

	info := fs.String("i", "", "info mode")
	extractIn := fs.String("x", "", "extract mode input")
	extractDir := fs.String("d", "", "extract mode output directory")
	convertIn := fs.String("z", "", "convert mode input")
	output := fs.String("o", "", "output file")
	board := fs.String("B", "", "board id")
	kernelPath := fs.String("k", "", "kernel image path")
	rootfsPath := fs.String("r", "", "root filesystem image path")
	revision := fs.String("V", "", "soft-version revision")
	jffs2 := fs.Bool("j", false, "append jffs2 EOF marker")
	sysupgrade := fs.Bool("S", false, "build a sysupgrade image")
	listBoards := fs.Bool("L", false, "list registered board ids")
	verboseInfo := fs.Bool("t", false, "also print the parsed flash partition table")
	help := fs.Bool("h", false, "usage")

	if err := fs.Parse(args[1:]); err != nil {
		log.Fatalln("Error:", err)
	}

	switch {
	case *help:
		usage()
	case *listBoards:
		runListBoards()
	case *info != "":
		runInfo(*info, *verboseInfo)
	case *extractIn != "" && *extractDir != "":
		runExtract(*extractIn, *extractDir)
	case *convertIn != "" && *output != "":
		runConvert(*convertIn, *output)
	case *board != "" && *kernelPath != "" && *rootfsPath != "" && *output != "":
		runBuild(*board, *kernelPath, *rootfsPath, *output, *revision, *jffs2, *sysupgrade)
	default:
		usage()
	}
}

func mustBeRegularFile(path string) {
	ok, err := platform.IsRegularFile(path)
	if err != nil {
		log.Fatalln("Error:", &safeloader.IoError{Op: "stat", Path: path, Err: err})
	}
	if !ok {
		log.Fatalln("Error:", &safeloader.InvalidInputError{Msg: path + " is not a regular file"})
	}
}

func mustBeDir(path string) {
	ok, err := platform.IsDir(path)
	if err != nil {
		log.Fatalln("Error:", &safeloader.IoError{Op: "stat", Path: path, Err: err})
	}
	if !ok {
		log.Fatalln("Error:", &safeloader.InvalidInputError{Msg: path + " is not a directory"})
	}
}

func readAndParse(path string) *safeloader.ParsedImage {
	mustBeRegularFile(path)
	data, err := Reader.ReadFile(path)
	if err != nil {
		log.Fatalln("Error:", err)
	}
	img, err := safeloader.ParseImage(data)
	if err != nil {
		log.Fatalln("Error:", err)
	}
	return img
}

func runListBoards() {
	for _, id := range safeloader.ListBoards() {
		fmt.Println(id)
	}
}

func runInfo(path string, verbose bool) {
	img := readAndParse(path)
	summary := safeloader.Describe(img)
	fmt.Print(summary.String())

	if verbose {
		raw, ok := img.Payloads["partition-table"]
		if !ok {
			log.Fatalln("Error:", &safeloader.FormatError{Msg: "no partition-table partition to dump"})
		}
		flash, err := safeloader.ParseFlashPartitionTable(raw)
		if err != nil {
			log.Fatalln("Error:", err)
		}
		fmt.Println("flash partition table:")
		for _, f := range flash {
			fmt.Printf("  %-20s base 0x%05x size 0x%05x\n", f.Name, f.Base, f.Size)
		}
	}
}

func runExtract(inPath, dir string) {
	img := readAndParse(inPath)
	mustBeDir(dir)

	files, err := safeloader.Extract(img)
	if err != nil {
		log.Fatalln("Error:", err)
	}
	for name, content := range files {
		dest := filepath.Join(dir, name)
		if err := Writer.WriteFile(dest, content); err != nil {
			log.Fatalln("Error:", err)
		}
	}
}

func runConvert(inPath, outPath string) {
	img := readAndParse(inPath)
	out, err := safeloader.Convert(img)
	if err != nil {
		log.Fatalln("Error:", err)
	}
	if err := Writer.WriteFile(outPath, out); err != nil {
		log.Fatalln("Error:", err)
	}
}

func runBuild(boardID, kernelPath, rootfsPath, outPath, revisionFlag string, jffs2, sysupgrade bool) {
	profile, ok := safeloader.Find(boardID)
	if !ok {
		log.Fatalln("Error:", &safeloader.InvalidInputError{Msg: "unknown board " + boardID})
	}

	mustBeRegularFile(kernelPath)
	mustBeRegularFile(rootfsPath)

	kernel, err := Reader.ReadFile(kernelPath)
	if err != nil {
		log.Fatalln("Error:", err)
	}
	rootfs, err := Reader.ReadFile(rootfsPath)
	if err != nil {
		log.Fatalln("Error:", err)
	}

	var revision uint32
	if revisionFlag != "" {
		revision, err = parseRevision(revisionFlag)
		if err != nil {
			log.Fatalln("Error:", &safeloader.InvalidInputError{Msg: err.Error()})
		}
	}

	opts := safeloader.BuildOptions{
		Kernel:   kernel,
		Rootfs:   rootfs,
		Jffs2EOF: jffs2,
		Revision: revision,
		Clock:    resolveClock(),
		MD5:      md5Func,
	}

	assembler := safeloader.NewAssembler(profile)
	var out []byte
	if sysupgrade {
		out, err = assembler.BuildSysupgrade(opts)
	} else {
		out, err = assembler.BuildFactory(opts)
	}
	if err != nil {
		log.Fatalln("Error:", err)
	}

	if err := Writer.WriteFile(outPath, out); err != nil {
		log.Fatalln("Error:", err)
	}
}
