package commands

import (
	"context"
	"courier-dispatch-service/internal/domain"
	"courier-dispatch-service/internal/services"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// track: print simulated courier positions until --ticks updates arrive,
// the order leaves IN_PROGRESS or the command is interrupted.
func trackCmd() *cobra.Command {
	var (
		orderID    string
		from, to   string
		eta        int
		distanceKm float64
		ticks      int
		interval   time.Duration
		syncEvery  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Follow a simulated courier",
		Long: "Follow a simulated courier. With --order the order is read from the gateway " +
			"and its status is polled every --sync; otherwise --from and --to describe an ad hoc delivery.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			if interval > 0 {
				cfg.TrackingInterval = interval
			}
			// Updates the printer has not caught up with are dropped; onUpdate
			// must not block the simulator.
			updates := make(chan domain.TrackedDelivery, 1)
			onUpdate := func(d domain.TrackedDelivery) {
				select {
				case updates <- d:
				default:
				}
			}

			if orderID != "" {
				return trackOrder(ctx, cmd.OutOrStdout(), orderID, ticks, syncEvery, updates, onUpdate)
			}

			start, err := parsePoint(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			dest, err := parsePoint(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			d, err := domain.NewTrackedDelivery(domain.OrderRecord{
				ID:              "local",
				Status:          domain.StatusInProgress,
				PickupAddress:   domain.OrderAddress{Lat: start.Lat, Lng: start.Lng},
				DeliveryAddress: domain.OrderAddress{Lat: dest.Lat, Lng: dest.Lng},
				DistanceKm:      distanceKm,
				EstimatedTime:   eta,
			})
			if err != nil {
				return err
			}

			sim := services.NewTrackingSimulator(d, simulatorOptions(onUpdate)...)
			if err := sim.Start(ctx); err != nil {
				return err
			}
			defer sim.Stop()

			return follow(ctx, cmd.OutOrStdout(), updates, ticks, nil)
		},
	}

	cmd.Flags().StringVar(&orderID, "order", "", "track a stored order by id")
	cmd.Flags().StringVar(&from, "from", "", "start point as lat,lng")
	cmd.Flags().StringVar(&to, "to", "", "destination as lat,lng")
	cmd.Flags().IntVar(&eta, "eta", 30, "initial remaining minutes")
	cmd.Flags().Float64Var(&distanceKm, "distance", 5, "initial remaining km")
	cmd.Flags().IntVar(&ticks, "ticks", 0, "stop after this many updates (0 runs until interrupted)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "tick interval (default TRACKING_INTERVAL)")
	cmd.Flags().DurationVar(&syncEvery, "sync", 30*time.Second, "order status poll interval with --order")
	cmd.MarkFlagsMutuallyExclusive("order", "from")
	cmd.MarkFlagsMutuallyExclusive("order", "to")
	cmd.MarkFlagsRequiredTogether("from", "to")
	return cmd
}

func simulatorOptions(onUpdate func(domain.TrackedDelivery)) []services.SimulatorOption {
	return []services.SimulatorOption{
		services.WithInterval(cfg.TrackingInterval),
		services.WithDistanceStep(cfg.TrackingDistanceStepKm),
		services.WithOnUpdate(onUpdate),
	}
}

func trackOrder(
	ctx context.Context,
	out io.Writer,
	orderID string,
	ticks int,
	syncEvery time.Duration,
	updates <-chan domain.TrackedDelivery,
	onUpdate func(domain.TrackedDelivery),
) error {
	w, err := newWire(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	if w.Gateway == nil {
		return errors.New("no order gateway configured. set GATEWAY_BASE_URL")
	}
	registry, err := services.NewTrackingRegistry(w.Gateway, w.SimulatorOptions(onUpdate)...)
	if err != nil {
		return err
	}
	defer registry.StopAll()

	d, err := registry.Start(ctx, orderID)
	if err != nil {
		return err
	}
	printDelivery(out, d)

	sync := func(ctx context.Context) (bool, error) {
		d, err := registry.SyncStatus(ctx, orderID)
		if err != nil {
			return false, err
		}
		if d.Status != domain.StatusInProgress {
			fmt.Fprintf(out, "order %s is %s\n", orderID, d.Status)
			return true, nil
		}
		return false, nil
	}
	if syncEvery <= 0 {
		sync = nil
	}

	return follow(ctx, out, updates, ticks, &poller{every: syncEvery, fn: sync})
}

type poller struct {
	every time.Duration
	fn    func(ctx context.Context) (done bool, err error)
}

// follow prints updates until n of them arrived (n <= 0 means no limit),
// ctx is done or the poller reports the order finished.
func follow(ctx context.Context, out io.Writer, updates <-chan domain.TrackedDelivery, n int, p *poller) error {
	var poll <-chan time.Time
	if p != nil && p.fn != nil {
		t := time.NewTicker(p.every)
		defer t.Stop()
		poll = t.C
	}

	for seen := 0; n <= 0 || seen < n; {
		select {
		case <-ctx.Done():
			return nil
		case d := <-updates:
			seen++
			printDelivery(out, d)
		case <-poll:
			done, err := p.fn(ctx)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
	return nil
}

func printDelivery(out io.Writer, d domain.TrackedDelivery) {
	fmt.Fprintf(out, "%s  %s  at %s  %.1f km  %d min left\n",
		d.OrderID, d.Status, d.CurrentLocation, d.RemainingDistanceKm, d.RemainingEtaMinutes)
}

func parsePoint(s string) (domain.GeoPoint, error) {
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return domain.GeoPoint{}, fmt.Errorf("point %q: want lat,lng", s)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("point %q: %w", s, err)
	}
	ln, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("point %q: %w", s, err)
	}
	return domain.NewGeoPoint(la, ln)
}
