// Skein CLI - compile, inspect, and play dialogue scripts
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/skein-lang/skein/compiler"
	"github.com/skein-lang/skein/manifest"
	"github.com/skein-lang/skein/runtime"
)

func main() {
	verbosity := flag.Int("v", 0, "Logging verbosity (0 = quiet)")
	startNode := flag.String("start", "", "Node to start from (default from skein.toml, else Start)")
	storagePath := flag.String("storage", "", "SQLite file for persistent variables (default in-memory)")
	snapshotPath := flag.String("snapshot", "", "Snapshot file to restore before and save after a run")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: skein [options] <command> [paths...]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  check    Compile scripts and report diagnostics\n")
		fmt.Fprintf(os.Stderr, "  strings  Extract the string table without compiling\n")
		fmt.Fprintf(os.Stderr, "  disasm   Compile scripts and print the disassembly\n")
		fmt.Fprintf(os.Stderr, "  run      Play a dialogue interactively\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  skein check story.skein\n")
		fmt.Fprintf(os.Stderr, "  skein run                      # Uses skein.toml in the current tree\n")
		fmt.Fprintf(os.Stderr, "  skein run -storage save.db -start Chapter2 scripts/\n")
	}
	flag.Parse()
	commonlog.Configure(*verbosity, nil)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command, paths := args[0], args[1:]

	project, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch command {
	case "check":
		result := compileOrExit(paths, project, compiler.ModeFullCompilation)
		fmt.Printf("ok: %d node(s), %d string(s)\n", len(result.Program.Nodes), result.StringTable.Len())

	case "strings":
		result := compileOrExit(paths, project, compiler.ModeStringsOnly)
		for _, id := range result.StringTable.IDs() {
			info, _ := result.StringTable.Get(id)
			fmt.Printf("%s\t%s\n", id, info.Text)
		}

	case "disasm":
		result := compileOrExit(paths, project, compiler.ModeFullCompilation)
		fmt.Print(result.Program.Disassemble())

	case "run":
		result := compileOrExit(paths, project, compiler.ModeFullCompilation)
		if err := runDialogue(result, project, *startNode, *storagePath, *snapshotPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(2)
	}
}

// compileOrExit compiles the given paths (or the manifest's sources when no
// paths are given), printing diagnostics. It exits on errors.
func compileOrExit(paths []string, project *manifest.Manifest, mode compiler.CompilationMode) *compiler.CompilationResult {
	files, err := collectScripts(paths, project)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no .skein files found\n")
		os.Exit(1)
	}

	job := compiler.CompilationJob{Mode: mode}
	for _, file := range files {
		source, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		job.Files = append(job.Files, compiler.SourceFile{
			Name:   filepath.Base(file),
			Source: string(source),
		})
	}

	result := compiler.Compile(job)
	for _, diagnostic := range result.Diagnostics {
		fmt.Fprintln(os.Stderr, diagnostic)
	}
	if mode == compiler.ModeFullCompilation && result.Program == nil {
		os.Exit(1)
	}
	return result
}

// collectScripts resolves the script list: explicit paths win, otherwise the
// project manifest decides.
func collectScripts(paths []string, project *manifest.Manifest) ([]string, error) {
	if len(paths) == 0 {
		if project == nil {
			return nil, fmt.Errorf("no paths given and no skein.toml found")
		}
		return project.ScriptFiles()
	}

	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot access %q: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".skein") {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
	}
	return files, nil
}

// runDialogue plays the compiled program on stdin/stdout.
func runDialogue(result *compiler.CompilationResult, project *manifest.Manifest, startNode, storagePath, snapshotPath string) error {
	if storagePath == "" && project != nil {
		storagePath = project.Run.Storage
	}
	if snapshotPath == "" && project != nil {
		snapshotPath = project.Run.Snapshot
	}
	if startNode == "" {
		startNode = runtime.DefaultStartNode
		if project != nil && project.Run.StartNode != "" {
			startNode = project.Run.StartNode
		}
	}

	var storage runtime.NamedStorage
	if storagePath != "" {
		sqlite, err := runtime.NewSQLiteVariableStorage(storagePath)
		if err != nil {
			return err
		}
		defer sqlite.Close()
		storage = sqlite
	} else {
		storage = runtime.NewMemoryVariableStorage()
	}

	if snapshotPath != "" {
		if data, err := os.ReadFile(snapshotPath); err == nil {
			if err := runtime.UnmarshalSnapshot(data, storage); err != nil {
				return err
			}
		} else if !os.IsNotExist(err) {
			return err
		}
	}

	dialogue := runtime.NewDialogue(storage)
	dialogue.SetProgram(result.Program)
	dialogue.SetTextProvider(result.StringTable)

	scanner := bufio.NewScanner(os.Stdin)

	dialogue.SetLineHandler(func(line runtime.Line) {
		if text, ok := dialogue.LineText(line); ok {
			fmt.Println(text)
		} else {
			fmt.Printf("(missing line %s)\n", line.ID)
		}
	})
	dialogue.SetCommandHandler(func(command runtime.Command) {
		fmt.Printf("<<%s>>\n", command.Text)
	})
	dialogue.SetOptionsHandler(func(options []runtime.DialogueOption) {
		fmt.Println()
		for _, option := range options {
			text, _ := dialogue.LineText(option.Line)
			marker := " "
			if !option.IsAvailable {
				marker = "x"
			}
			fmt.Printf("  %d) [%s] %s\n", option.ID+1, marker, text)
		}
	})

	if err := dialogue.SetNode(startNode); err != nil {
		return err
	}

	for dialogue.IsActive() {
		if dialogue.State() == runtime.StateWaitingForOptions {
			id, err := promptSelection(scanner)
			if err != nil {
				return err
			}
			if err := dialogue.SetSelectedOption(id); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				continue
			}
		}
		if err := dialogue.Continue(); err != nil {
			return err
		}
	}

	if snapshotPath != "" {
		data, err := runtime.MarshalSnapshot(storage)
		if err != nil {
			return err
		}
		if err := os.WriteFile(snapshotPath, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// promptSelection reads a 1-based option number from stdin.
func promptSelection(scanner *bufio.Scanner) (int, error) {
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return 0, fmt.Errorf("input closed")
		}
		choice, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil {
			fmt.Println("Enter an option number.")
			continue
		}
		return choice - 1, nil
	}
}
