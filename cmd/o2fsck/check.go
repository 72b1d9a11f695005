package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/Byte-Jerry/ocfs2-tools/internal/logger"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/config"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/device"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/metrics"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/pass2"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/problem"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

// applyCheckFlags lets -y/-n/-p and -w override the check section.
func applyCheckFlags(c *cli.Context, cfg *config.Config) error {
	var modes []string
	for _, mode := range []string{"yes", "no", "preen"} {
		if c.Bool(mode) {
			modes = append(modes, mode)
		}
	}
	if len(modes) > 1 {
		return cli.Exit("only one of -y, -n and -p may be given", exitError)
	}
	if len(modes) == 1 {
		cfg.Check.Mode = modes[0]
	}
	if c.Bool("write") {
		cfg.Check.WriteChanges = true
	}
	return config.Validate(cfg)
}

// checkGeometry compares the recorded geometry with the configured
// expectations.
func checkGeometry(cfg *config.Config, geo state.Geometry) error {
	if cfg.Check.BlockSize != 0 && cfg.Check.BlockSize != geo.BlockSize {
		return fmt.Errorf("configured block size %d does not match recorded block size %d",
			cfg.Check.BlockSize, geo.BlockSize)
	}
	if cfg.Check.RootInode != 0 && cfg.Check.RootInode != geo.RootInode {
		return fmt.Errorf("configured root inode %d does not match recorded root inode %d",
			cfg.Check.RootInode, geo.RootInode)
	}
	return nil
}

func runCheck(c *cli.Context, cfg *config.Config, store state.Store) error {
	ctx := c.Context

	if err := applyCheckFlags(c, cfg); err != nil {
		return err
	}
	mode, err := problem.ParseMode(cfg.Check.Mode)
	if err != nil {
		return err
	}

	geo, err := store.Geometry(ctx)
	if errors.Is(err, state.ErrNoGeometry) {
		return cli.Exit("no scan state found, run 'o2fsck import' first", exitError)
	}
	if err != nil {
		return err
	}
	if err := checkGeometry(cfg, geo); err != nil {
		return err
	}

	dev, err := config.CreateDevice(ctx, &cfg.Device, int(geo.BlockSize), cfg.Check.WriteChanges)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			logger.Warn("Failed to close device: %v", err)
		}
	}()

	m := config.InitializeMetrics(cfg)
	if m.Device != nil {
		dev = device.Instrument(dev, m.Device)
	}
	if m.Server != nil {
		go func() {
			if err := m.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	var in io.Reader
	if mode == problem.ModeInteractive {
		in = os.Stdin
	}
	resolver := problem.NewConsoleResolver(mode, in, os.Stdout)

	logger.Info("Checking directories: mode=%s write_changes=%v device=%s block_size=%d",
		mode, cfg.Check.WriteChanges, cfg.Device.Type, geo.BlockSize)

	res, runErr := pass2.Run(ctx, store, pass2.Options{
		Device:       dev,
		Resolver:     resolver,
		Metrics:      m.Pass2,
		Out:          os.Stdout,
		WriteChanges: cfg.Check.WriteChanges,
	})

	if res != nil {
		printResult(os.Stdout, res)
	}

	if m.Textfile != "" {
		if err := metrics.WriteTextfile(m.Textfile); err != nil {
			logger.Warn("%v", err)
		}
	}

	if runErr != nil {
		if code, ok := pass2.IsFatal(runErr); ok {
			return cli.Exit(fmt.Sprintf("o2fsck: directory check aborted (%s): %v", code, runErr), exitError)
		}
		return runErr
	}

	if code := exitCode(res, cfg.Check.WriteChanges); code != exitOK {
		return cli.Exit("", code)
	}
	return nil
}

// exitCode maps a finished run to an fsck(8) exit status.
func exitCode(res *pass2.Result, writeChanges bool) int {
	switch {
	case res.WriteFailures > 0 || res.Declined > 0:
		return exitUncorrected
	case res.Changed && !writeChanges:
		// Repairs were decided but never reached the device.
		return exitUncorrected
	case res.Changed:
		return exitCorrected
	default:
		return exitOK
	}
}

func printResult(w io.Writer, res *pass2.Result) {
	fmt.Fprintf(w, "\nRun %s\n", res.RunID)
	fmt.Fprintf(w, "  directory blocks: %d checked, %d skipped, %d unreadable\n",
		res.Blocks, res.SkippedBlocks, res.AbortedBlocks)
	fmt.Fprintf(w, "  directory entries: %d\n", res.Dirents)
	fmt.Fprintf(w, "  blocks with duplicate names: %d\n", res.Duplicates)
	fmt.Fprintf(w, "  changed blocks: %d (%d written, %d write failures)\n",
		res.ChangedBlocks, res.WrittenBlocks, res.WriteFailures)
	fmt.Fprintf(w, "  problems left unrepaired: %d\n", res.Declined)

	if len(res.Fixes) == 0 {
		return
	}

	kinds := make([]problem.Kind, 0, len(res.Fixes))
	for kind := range res.Fixes {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	fmt.Fprintf(w, "  repairs:\n")
	for _, kind := range kinds {
		fmt.Fprintf(w, "    %-24s %d\n", kind, res.Fixes[kind])
	}
}

func listParents(c *cli.Context, cfg *config.Config, store state.Store) error {
	ctx := c.Context

	records, err := store.ListParents(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INODE\tDIRENT\tDOTDOT")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%d\t%d\n", r.Ino, r.Parent.Dirent, r.Parent.DotDot)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	rebuild, err := store.Members(ctx, state.RebuildDirs)
	if err != nil {
		return err
	}
	if len(rebuild) > 0 {
		fmt.Printf("\nDirectories marked for rebuild: %v\n", rebuild)
	}
	return nil
}

func showLastRun(c *cli.Context, cfg *config.Config, store state.Store) error {
	run, err := store.LastRun(c.Context)
	if errors.Is(err, state.ErrNoRun) {
		fmt.Println("No check has been run yet.")
		return nil
	}
	if err != nil {
		return err
	}

	printRun(os.Stdout, run)
	return nil
}

func printRun(w io.Writer, run state.RunRecord) {
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "  started:  %s\n", run.Started.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  finished: %s (%s)\n", run.Finished.Format("2006-01-02 15:04:05"), run.Finished.Sub(run.Started))
	fmt.Fprintf(w, "  blocks: %d  entries: %d  duplicate blocks: %d  changed: %v\n",
		run.Blocks, run.Dirents, run.Duplicates, run.Changed)
	for _, name := range sortedFixNames(run.Fixes) {
		fmt.Fprintf(w, "  %-24s %d\n", name, run.Fixes[name])
	}
	if run.Aborted {
		fmt.Fprintf(w, "  aborted: %s\n", run.AbortReason)
	}
}

// sortedFixNames orders stored fix names the way the problem catalogue
// does. Names the catalogue no longer knows go last, alphabetically.
func sortedFixNames(fixes map[string]int64) []string {
	rank := make(map[string]int, len(fixes))
	for i, kind := range problem.Kinds() {
		rank[kind.String()] = i
	}

	names := make([]string, 0, len(fixes))
	for name := range fixes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, iKnown := rank[names[i]]
		rj, jKnown := rank[names[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		}
		return names[i] < names[j]
	})
	return names
}
