// Command franken-repl is a small interactive CLI that drives
// allocate/free/validate/decide by hand and prints the live
// RuntimeKernelSnapshot, the "consumer of the snapshot interface" named in
// spec §6.5 — implemented because spec §1's Non-goals exclude dashboards
// and fixture harnesses, not a minimal operator REPL (SPEC_FULL.md
// SUPPLEMENTED FEATURES #7).
//
// Commands:
//
//	alloc <size> [align]   allocate a block, print its address
//	free <addr>            free a block
//	validate <addr>        run the validation pipeline against addr
//	decide <family>        run decide() for a synthetic context
//	snapshot               print the current RuntimeKernelSnapshot
//	heal                   print recent healing-ring events
//	mode                   print the active safety mode
//	help                   print this message
//	quit                   exit
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/Dicklesworthstone/frankenlibc-go/internal/config"
	"github.com/Dicklesworthstone/frankenlibc-go/pkg/membrane"
)

var commandNames = []string{
	"alloc", "free", "validate", "decide", "snapshot", "heal", "mode", "help", "quit",
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("franken-repl", flag.ContinueOnError)
	modeFlag := fs.String("mode", "", "override FRANKENLIBC_MODE for this session (OFF|STRICT|HARDENED)")
	tuningFlag := fs.String("tuning", "", "path to a JSONC tuning file")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	mode := config.ResolveMode()
	switch strings.ToUpper(*modeFlag) {
	case "STRICT":
		mode = membrane.ModeStrict
	case "HARDENED":
		mode = membrane.ModeHardened
	case "OFF":
		mode = membrane.ModeOff
	}

	var tuning *config.Tuning
	if *tuningFlag != "" {
		t, err := config.LoadTuning(*tuningFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, "franken-repl: tuning:", err)
			return 1
		}
		tuning = t
	}

	kernel := membrane.NewKernelWithConfig(mode, tuning.MembraneConfig())
	caller := membrane.NewCallerHandle()

	r := &repl{kernel: kernel, caller: caller, mode: mode}
	return r.run()
}

type repl struct {
	kernel *membrane.Kernel
	caller *membrane.CallerHandle
	mode   membrane.Mode
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".franken_repl_history"
	}
	return filepath.Join(home, ".franken_repl_history")
}

func (r *repl) run() int {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("franken-repl: mode=%s. Type 'help' for commands.\n", r.mode)

	for {
		input, err := line.Prompt("franken> ")
		if err != nil {
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if r.dispatch(input) {
			break
		}
	}

	if f, err := os.Create(historyFile()); err == nil {
		line.WriteHistory(f)
		f.Close()
	}
	return 0
}

func (r *repl) completer(line string) []string {
	var out []string
	for _, c := range commandNames {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

// dispatch executes one REPL line, returning true when the session should
// end.
func (r *repl) dispatch(input string) bool {
	fields := strings.Fields(input)
	cmd := fields[0]
	rest := fields[1:]

	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		r.printHelp()
	case "mode":
		fmt.Println(r.mode)
	case "alloc":
		r.cmdAlloc(rest)
	case "free":
		r.cmdFree(rest)
	case "validate":
		r.cmdValidate(rest)
	case "decide":
		r.cmdDecide(rest)
	case "snapshot":
		r.cmdSnapshot()
	case "heal":
		r.cmdHeal()
	default:
		fmt.Printf("unknown command %q; type 'help'\n", cmd)
	}
	return false
}

func (r *repl) printHelp() {
	fmt.Println(`commands:
  alloc <size> [align]   allocate a block, print its address
  free <addr>            free a block
  validate <addr>        run the validation pipeline against addr
  decide <family>        run decide() for a synthetic context in that family
  snapshot                print the current RuntimeKernelSnapshot
  heal                    print recent healing-ring events
  mode                    print the active safety mode
  quit                    exit`)
}

func parseAddr(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	return strconv.ParseUint(s, 16, 64)
}

func (r *repl) cmdAlloc(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: alloc <size> [align]")
		return
	}
	size, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Println("bad size:", err)
		return
	}
	align := uint64(membrane.MinAlign)
	if len(args) >= 2 {
		align, err = strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			fmt.Println("bad align:", err)
			return
		}
	}
	addr, err := r.kernel.Allocate(size, align)
	if err != nil {
		fmt.Println("alloc failed:", err)
		return
	}
	fmt.Printf("0x%x\n", addr)
}

func (r *repl) cmdFree(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: free <addr>")
		return
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		fmt.Println("bad addr:", err)
		return
	}
	result, _ := r.kernel.Free(addr)
	fmt.Println(result)
}

func (r *repl) cmdValidate(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: validate <addr>")
		return
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		fmt.Println("bad addr:", err)
		return
	}
	ctx := membrane.RuntimeContext{Family: membrane.FamilyPointerValidation, AddrHint: addr}
	out := r.kernel.Pipeline().Validate(r.caller, ctx)
	fmt.Printf("%s exit_stage=%s can_read=%v can_write=%v\n", out.Kind, out.ExitStage, out.CanRead(), out.CanWrite())
}

var familyByName = map[string]membrane.ApiFamily{
	"allocator": membrane.FamilyAllocator,
	"stdio":     membrane.FamilyStdio,
	"stdlib":    membrane.FamilyStdlib,
	"iofd":      membrane.FamilyIoFd,
}

func (r *repl) cmdDecide(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: decide <family>")
		return
	}
	family, ok := familyByName[strings.ToLower(args[0])]
	if !ok {
		fmt.Println("unknown family; try: allocator, stdio, stdlib, iofd")
		return
	}
	d := r.kernel.Decide(membrane.RuntimeContext{Family: family})
	fmt.Printf("profile=%s action=%s repair=%s risk_ppm=%d policy_id=%d\n",
		d.Profile, d.Action, d.Repair, d.RiskUpperBoundPPM, d.PolicyID)
}

func (r *repl) cmdSnapshot() {
	snap := r.kernel.Snapshot()
	enc, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		fmt.Println("encode error:", err)
		return
	}
	fmt.Println(string(enc))
}

func (r *repl) cmdHeal() {
	events := r.kernel.HealRing().Recent()
	if len(events) == 0 {
		fmt.Println("(no healing events recorded)")
		return
	}
	for _, e := range events {
		fmt.Printf("%s family=%s kind=%s detail=%q\n", e.PolicyID, e.Family, e.Kind, e.Detail)
	}
}
