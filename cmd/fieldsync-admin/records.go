package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fieldsync/fieldsync/config"
	"github.com/fieldsync/fieldsync/internal/bootstrap"
	"github.com/fieldsync/fieldsync/internal/data"
	"github.com/fieldsync/fieldsync/internal/domain/model"
	"github.com/fieldsync/fieldsync/internal/service"
)

func openStore(cfg *config.AppConfig) (*data.RecordRepo, func(), error) {
	store, err := bootstrap.OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func runList(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	statusFlag := fs.String("status", "", "filter by status (draft, queued, delivered, failed)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, closeStore, err := openStore(&ctx.Config)
	if err != nil {
		return err
	}
	defer closeStore()

	statuses := []model.RecordStatus{
		model.StatusDraft, model.StatusQueued, model.StatusDelivered, model.StatusFailed,
	}
	if *statusFlag != "" {
		var status model.RecordStatus
		if err := status.UnmarshalText([]byte(*statusFlag)); err != nil {
			return err
		}
		statuses = []model.RecordStatus{status}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	if err := writef(w, "ID\tSTATUS\tATTACHMENTS\tCREATED\tMODIFIED\n"); err != nil {
		return err
	}
	for _, status := range statuses {
		records, listErr := store.ListByStatus(ctx.Ctx, status)
		if listErr != nil {
			return listErr
		}
		for _, rec := range records {
			if err := writef(w, "%s\t%s\t%d\t%s\t%s\n",
				rec.ID, rec.Status, len(rec.Attachments),
				rec.CreatedAt.Format(time.RFC3339),
				rec.LastModified.Format(time.RFC3339),
			); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

func runShow(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	idFlag := fs.String("id", "", "record id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *idFlag == "" {
		return errors.New("-id is required")
	}

	store, closeStore, err := openStore(&ctx.Config)
	if err != nil {
		return err
	}
	defer closeStore()

	rec, err := store.Get(ctx.Ctx, *idFlag)
	if err != nil {
		return err
	}

	if err := writef(os.Stdout, "id:        %s\nstatus:    %s\ncreated:   %s\nmodified:  %s\npayload:   %s\n",
		rec.ID, rec.Status,
		rec.CreatedAt.Format(time.RFC3339),
		rec.LastModified.Format(time.RFC3339),
		string(rec.Payload),
	); err != nil {
		return err
	}
	for i, att := range rec.Attachments {
		if err := writef(os.Stdout, "attachment %d: %s (%s, %d bytes)\n",
			i, att.Name, att.MimeType, att.SizeBytes); err != nil {
			return err
		}
	}
	return nil
}

func runRetry(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("retry", flag.ContinueOnError)
	idFlag := fs.String("id", "", "record id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *idFlag == "" {
		return errors.New("-id is required")
	}

	store, closeStore, err := openStore(&ctx.Config)
	if err != nil {
		return err
	}
	defer closeStore()

	rec, err := store.Get(ctx.Ctx, *idFlag)
	if err != nil {
		return err
	}
	if rec.Status != model.StatusFailed {
		return fmt.Errorf("record %s is %s, only failed records can be retried", rec.ID, rec.Status)
	}

	rec.Status = model.StatusQueued
	rec.LastModified = time.Now().UTC()
	if err := store.Put(ctx.Ctx, rec); err != nil {
		return err
	}

	ctx.Logger.InfoContext(ctx.Ctx, "record re-queued", "record_id", rec.ID)
	return nil
}

func runGC(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("gc", flag.ContinueOnError)
	maxAge := fs.Duration("max-age", ctx.Config.Reaper.DeliveredMaxAge, "retention age for delivered records")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, closeStore, err := openStore(&ctx.Config)
	if err != nil {
		return err
	}
	defer closeStore()

	cfg := ctx.Config.Reaper
	cfg.DeliveredMaxAge = *maxAge
	reaper, err := service.NewReaperService(service.ReaperServiceOptions{
		Store:  store,
		Config: cfg,
		Logger: ctx.Logger,
	})
	if err != nil {
		return err
	}

	removed, err := reaper.RunOnce(ctx.Ctx)
	if err != nil {
		return err
	}
	return writef(os.Stdout, "removed %d delivered records older than %s\n", removed, *maxAge)
}

func runUsage(ctx *commandContext, args []string) error {
	if len(args) > 0 {
		return errors.New("usage takes no arguments")
	}

	store, closeStore, err := openStore(&ctx.Config)
	if err != nil {
		return err
	}
	defer closeStore()

	usage, err := store.EstimateUsage(ctx.Ctx)
	if err != nil {
		return err
	}
	if usage.QuotaBytes > 0 {
		return writef(os.Stdout, "used %d of %d bytes\n", usage.UsedBytes, usage.QuotaBytes)
	}
	return writef(os.Stdout, "used %d bytes (no quota configured)\n", usage.UsedBytes)
}
