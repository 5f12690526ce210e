// Command bufctl is an interactive REPL for exercising a page buffer
// manager against a scratch directory: get/pin/unpin pages, write
// patterns, inspect frame occupancy. It mirrors the teacher's TCP SQL
// client shell, minus the network round trip — everything here runs
// against a local Manager directly.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/afero"

	"github.com/corewright/pagepool/internal/bufmgr"
	"github.com/corewright/pagepool/internal/catalog"
	"github.com/corewright/pagepool/internal/config"
)

func main() {
	var (
		cfgPath    = flag.String("config", "", "path to a pagepool yaml config (optional)")
		dataDir    = flag.String("data-dir", "", "override data directory")
		statsEvery = flag.Duration("stats-every", 0, "if >0, print frame occupancy on this interval")
	)
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}

	fs := afero.NewOsFs()
	cat := catalog.New(fs, cfg.Storage.DataDir)

	mgr, err := bufmgr.New(fs, cfg.Storage.PageSize, cfg.Storage.NumFrames, cfg.Storage.TempFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open buffer manager: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			slog.Error("bufctl: close manager", "err", err)
		}
	}()

	sh := &shell{mgr: mgr, cat: cat, handles: map[string]*bufmgr.Handle{}}

	if *statsEvery > 0 {
		go sh.tickStats(*statsEvery)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "bufctl> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	fmt.Println("type \\help for help")
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			fmt.Println()
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "\\q" || line == "quit" || line == "exit" {
			return
		}
		sh.dispatch(line)
	}
}

// shell holds open handles by a caller-assigned name so a REPL session
// can reference "get t 0 as h1" and later "unpin h1" / "close h1".
type shell struct {
	mgr     *bufmgr.Manager
	cat     *catalog.Catalog
	handles map[string]*bufmgr.Handle
}

func (sh *shell) dispatch(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	var err error
	switch fields[0] {
	case "\\help":
		printHelp()
	case "createtable":
		err = sh.createTable(fields[1:])
	case "get":
		err = sh.get(fields[1:], false)
	case "getpinned":
		err = sh.get(fields[1:], true)
	case "anon":
		err = sh.anon(fields[1:], false)
	case "anonpinned":
		err = sh.anon(fields[1:], true)
	case "write":
		err = sh.write(fields[1:])
	case "read":
		err = sh.read(fields[1:])
	case "unpin":
		err = sh.unpin(fields[1:])
	case "close":
		err = sh.closeHandle(fields[1:])
	default:
		err = fmt.Errorf("unknown command %q (try \\help)", fields[0])
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func printHelp() {
	fmt.Println(`commands:
  createtable <name>                 register a table in the catalog
  get <table> <index> as <name>      acquire a handle, bind it to <name>
  getpinned <table> <index> as <name>
  anon as <name>                     acquire an anonymous page
  anonpinned as <name>
  write <name> <byte-hex>            fill the page with one repeated byte
  read <name>                        hex-dump the first 32 bytes
  unpin <name>                       clear the pin flag
  close <name>                       release the handle
  \q | quit | exit                   leave`)
}

func (sh *shell) createTable(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: createtable <name>")
	}
	_, err := sh.cat.CreateTable(args[0])
	return err
}

func parseAs(args []string) (rest []string, name string, err error) {
	if len(args) < 2 || args[len(args)-2] != "as" {
		return nil, "", fmt.Errorf("usage: ... as <name>")
	}
	return args[:len(args)-2], args[len(args)-1], nil
}

func (sh *shell) get(args []string, pinned bool) error {
	rest, name, err := parseAs(args)
	if err != nil {
		return err
	}
	if len(rest) != 2 {
		return fmt.Errorf("usage: get <table> <index> as <name>")
	}
	tbl, err := sh.cat.OpenTable(rest[0])
	if err != nil {
		tbl, err = sh.cat.CreateTable(rest[0])
		if err != nil {
			return err
		}
	}
	index, err := strconv.ParseInt(rest[1], 10, 64)
	if err != nil {
		return fmt.Errorf("bad index: %w", err)
	}

	var h *bufmgr.Handle
	if pinned {
		h, err = sh.mgr.GetPinnedPage(tbl, index)
	} else {
		h, err = sh.mgr.GetPage(tbl, index)
	}
	if err != nil {
		return err
	}
	sh.handles[name] = h
	return nil
}

func (sh *shell) anon(args []string, pinned bool) error {
	_, name, err := parseAs(args)
	if err != nil {
		return err
	}
	var h *bufmgr.Handle
	if pinned {
		h, err = sh.mgr.GetPinnedAnonymousPage()
	} else {
		h, err = sh.mgr.GetAnonymousPage()
	}
	if err != nil {
		return err
	}
	sh.handles[name] = h
	return nil
}

func (sh *shell) handle(name string) (*bufmgr.Handle, error) {
	h, ok := sh.handles[name]
	if !ok {
		return nil, fmt.Errorf("no such handle %q", name)
	}
	return h, nil
}

func (sh *shell) write(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: write <name> <byte-hex>")
	}
	h, err := sh.handle(args[0])
	if err != nil {
		return err
	}
	raw, err := hex.DecodeString(args[1])
	if err != nil || len(raw) != 1 {
		return fmt.Errorf("byte-hex must be exactly one byte, e.g. ab")
	}
	buf, err := h.GetBytes()
	if err != nil {
		return err
	}
	for i := range buf {
		buf[i] = raw[0]
	}
	h.WroteBytes()
	return nil
}

func (sh *shell) read(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: read <name>")
	}
	h, err := sh.handle(args[0])
	if err != nil {
		return err
	}
	buf, err := h.GetBytes()
	if err != nil {
		return err
	}
	n := len(buf)
	if n > 32 {
		n = 32
	}
	fmt.Println(hex.EncodeToString(buf[:n]))
	return nil
}

func (sh *shell) unpin(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: unpin <name>")
	}
	h, err := sh.handle(args[0])
	if err != nil {
		return err
	}
	sh.mgr.Unpin(h)
	return nil
}

func (sh *shell) closeHandle(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: close <name>")
	}
	h, err := sh.handle(args[0])
	if err != nil {
		return err
	}
	delete(sh.handles, args[0])
	return h.Close()
}

// tickStats periodically logs frame occupancy; it exists mainly so
// Manager.Stats has a second, concurrent caller beyond the REPL
// goroutine, exercising the manager's lock-protected snapshot path.
func (sh *shell) tickStats(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for range t.C {
		st := sh.mgr.Stats()
		slog.Info("bufctl: stats",
			"frames_in_use", st.FramesInUse,
			"frames_total", st.FramesTotal,
			"resident_pages", st.ResidentPages)
	}
}
