package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/infra/remote"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/service"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/tui"
)

const usage = `usage: gridtui [command]

commands:
  (none)        open the interactive grid
  export FILE   write the stored grid to a TOML file
  import FILE   replace the stored grid with a TOML file
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if err := run(flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "gridtui:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := tui.LoadConfig()
	if err != nil {
		return err
	}
	closeLog, err := tui.OpenLog(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	repo := remote.NewCellRepository(cfg.API.URL, remote.WithToken(cfg.API.Token))
	logrus.WithField("url", cfg.API.URL).Info("gridtui starting")

	if len(args) > 0 {
		if len(args) != 2 {
			flag.Usage()
			return fmt.Errorf("command %q needs a file argument", args[0])
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout)
		defer cancel()
		switch args[0] {
		case "export":
			return exportGrid(ctx, repo, args[1])
		case "import":
			return importGrid(ctx, repo, args[1])
		default:
			flag.Usage()
			return fmt.Errorf("unknown command %q", args[0])
		}
	}

	writer := service.NewBackgroundWriter(repo, cfg.API.Timeout)
	store := service.NewGridStore(repo,
		service.WithPersistTimeout(cfg.API.Timeout),
		service.WithAsyncWriter(writer),
	)
	p := tea.NewProgram(tui.NewModel(store, cfg.API.Timeout), tea.WithAltScreen())
	_, runErr := p.Run()

	// A clear submitted just before quitting must still reach the server.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout)
	defer cancel()
	if err := writer.Wait(ctx); err != nil {
		logrus.WithError(err).Warn("gridtui: exiting before the last grid write finished")
	}

	if runErr != nil {
		return fmt.Errorf("run ui: %w", runErr)
	}
	return nil
}

func exportGrid(ctx context.Context, repo *remote.CellRepository, path string) error {
	state, err := service.NewCellService(repo, nil, 0).Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := tui.ExportFile(path, state); err != nil {
		return err
	}
	fmt.Printf("exported %d cells to %s\n", len(state.Cells), path)
	return nil
}

func importGrid(ctx context.Context, repo *remote.CellRepository, path string) error {
	cells, err := tui.ImportFile(path)
	if err != nil {
		return err
	}
	if err := service.NewCellService(repo, nil, 0).Replace(ctx, cells); err != nil {
		return err
	}
	fmt.Printf("imported %d cells from %s\n", len(cells), path)
	return nil
}
