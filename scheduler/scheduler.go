package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"housescout/config"
	"housescout/models"
	"housescout/services"
	"housescout/storage"
)

// Triggerable allows workers to be triggered manually.
type Triggerable interface {
	Trigger()
}

// Scheduler drives the daemon: it runs enabled saved searches on a cron or
// fixed interval and polls the command queue for operator instructions.
type Scheduler struct {
	cfg    *config.Config
	search *services.SearchService
	store  *storage.SQLiteStore
	cron   *cron.Cron
	ticker *time.Ticker
	stopCh chan struct{}
	paused bool

	revalidateWorker Triggerable
	enrichWorker     Triggerable
	exportWorker     Triggerable
}

func New(cfg *config.Config, search *services.SearchService, store *storage.SQLiteStore) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		search: search,
		store:  store,
		cron:   cron.New(),
		stopCh: make(chan struct{}),
	}
}

// SetWorkers registers background workers for manual triggering.
func (s *Scheduler) SetWorkers(revalidate, enrich, export Triggerable) {
	s.revalidateWorker = revalidate
	s.enrichWorker = enrich
	s.exportWorker = export
}

func (s *Scheduler) Start(ctx context.Context) error {
	go s.pollCommands(ctx)

	if s.cfg.Scheduler.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			s.runSavedSearches(ctx)
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else if s.cfg.Scheduler.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Scheduler.Interval)
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.runSavedSearches(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		log.Println("No schedule configured, daemon will only respond to commands")
	}

	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}

// runSavedSearches executes every enabled saved search sequentially. One
// failing search does not stop the rest.
func (s *Scheduler) runSavedSearches(ctx context.Context) {
	if s.paused {
		log.Println("Scheduler paused, skipping scheduled run")
		return
	}

	searches, err := s.store.ListEnabledSearches()
	if err != nil {
		log.Printf("Error listing saved searches: %v", err)
		return
	}
	if len(searches) == 0 {
		log.Println("No saved searches configured")
		return
	}

	for i := range searches {
		if ctx.Err() != nil {
			return
		}
		if _, _, err := s.search.RunSaved(ctx, &searches[i]); err != nil {
			log.Printf("Saved search %d (%q) failed: %v", searches[i].ID, searches[i].Query, err)
		}
	}
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cmds, err := s.store.GetPendingCommands()
			if err != nil {
				log.Printf("Error getting commands: %v", err)
				continue
			}

			for _, cmd := range cmds {
				log.Printf("Processing command: %s", cmd.Command)
				if err := s.handleCommand(ctx, &cmd); err != nil {
					log.Printf("Command error: %v", err)
				}
				if err := s.store.MarkCommandProcessed(cmd.ID); err != nil {
					log.Printf("Error marking command processed: %v", err)
				}
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdSearchNow:
		params, err := s.store.ParseCommandParams(cmd)
		if err != nil {
			return err
		}
		if params.Query == "" {
			return fmt.Errorf("search_now requires a query")
		}
		_, _, err = s.search.Run(ctx, services.SearchRequest{Query: params.Query})
		return err
	case models.CmdRunSaved:
		params, err := s.store.ParseCommandParams(cmd)
		if err != nil {
			return err
		}
		saved, err := s.store.GetSavedSearch(params.SavedID)
		if err != nil {
			return err
		}
		if saved == nil {
			return fmt.Errorf("saved search %d not found", params.SavedID)
		}
		_, _, err = s.search.RunSaved(ctx, saved)
		return err
	case models.CmdPause:
		s.paused = true
		log.Println("Scheduler paused via command")
		return nil
	case models.CmdResume:
		s.paused = false
		log.Println("Scheduler resumed via command")
		return nil
	case models.CmdRunRevalidate:
		if s.revalidateWorker != nil {
			s.revalidateWorker.Trigger()
			log.Println("Revalidate worker triggered via command")
		}
		return nil
	case models.CmdRunEnrich:
		if s.enrichWorker != nil {
			s.enrichWorker.Trigger()
			log.Println("Enrichment worker triggered via command")
		}
		return nil
	case models.CmdRunExport:
		if s.exportWorker != nil {
			s.exportWorker.Trigger()
			log.Println("Export worker triggered via command")
		}
		return nil
	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}
}

// TriggerNow runs all enabled saved searches immediately.
func (s *Scheduler) TriggerNow(ctx context.Context) {
	s.runSavedSearches(ctx)
}
