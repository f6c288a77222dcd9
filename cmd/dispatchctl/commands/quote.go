package commands

import (
	"courier-dispatch-service/internal/domain"
	"courier-dispatch-service/internal/services"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// quote: resolve both addresses, print the quote and, with --courier, place the order.
func quoteCmd() *cobra.Command {
	var (
		pickup, delivery  string
		category, urgency string
		weight            float64
		insured           bool
		courierID         string
		listCouriers      bool
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a delivery and optionally submit it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			w, err := newWire(ctx)
			if err != nil {
				return err
			}
			defer w.Close()

			s, err := w.NewSession()
			if err != nil {
				return err
			}
			defer s.Subscribe(func(t services.Transition) {
				if t.Reason != "" {
					fmt.Fprintf(out, "  %s -> %s (%s)\n", t.From, t.To, t.Reason)
					return
				}
				fmt.Fprintf(out, "  %s -> %s\n", t.From, t.To)
			})()

			if err := s.SetPickupAddress(pickup); err != nil {
				return err
			}
			if err := s.SetDeliveryAddress(delivery); err != nil {
				return err
			}
			c, err := domain.ParseCategory(category)
			if err != nil {
				return err
			}
			if err := s.SetCategory(c); err != nil {
				return err
			}
			if cmd.Flags().Changed("weight") {
				if err := s.SetWeight(weight); err != nil {
					return err
				}
			}
			u, err := domain.ParseUrgency(urgency)
			if err != nil {
				return err
			}
			if err := s.SetUrgency(u); err != nil {
				return err
			}
			if err := s.SetInsured(insured); err != nil {
				return err
			}

			q, err := s.RequestQuote(ctx)
			if err != nil {
				return err
			}
			printQuote(out, s.Snapshot(), q)

			if listCouriers {
				couriers, err := s.AvailableCouriers(ctx)
				if err != nil {
					return err
				}
				for _, c := range couriers {
					fmt.Fprintf(out, "courier %s  %-20s %-8s rating %.1f  %d deliveries\n",
						c.ID, c.FullName, c.Transport, c.Rating, c.DeliveriesCount)
				}
			}

			if courierID == "" {
				return nil
			}
			id, err := s.Submit(ctx, courierID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "order %s created\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&pickup, "pickup", "", "pickup address")
	cmd.Flags().StringVar(&delivery, "delivery", "", "delivery address")
	cmd.Flags().StringVar(&category, "category", string(domain.CategorySmall), "package category: small, medium, large")
	cmd.Flags().Float64Var(&weight, "weight", 0, "package weight in kg (default from category)")
	cmd.Flags().StringVar(&urgency, "urgency", string(domain.UrgencyStandard), "standard, express or urgent")
	cmd.Flags().BoolVar(&insured, "insured", false, "add insurance")
	cmd.Flags().StringVar(&courierID, "courier", "", "submit the order for this courier id")
	cmd.Flags().BoolVar(&listCouriers, "couriers", false, "list available couriers")
	_ = cmd.MarkFlagRequired("pickup")
	_ = cmd.MarkFlagRequired("delivery")
	return cmd
}

func printQuote(out io.Writer, snap services.SessionSnapshot, q domain.Quote) {
	fmt.Fprintf(out, "pickup    %s (%s)\n", snap.Pickup.Text, snap.Pickup.Point)
	fmt.Fprintf(out, "delivery  %s (%s)\n", snap.Delivery.Text, snap.Delivery.Point)
	fmt.Fprintf(out, "package   %s %.2f kg, %s, insured=%t\n",
		snap.Package.Category, snap.Package.WeightKg, snap.Package.Urgency, snap.Package.Insured)
	fmt.Fprintf(out, "distance  %.2f km\n", q.DistanceKm)
	fmt.Fprintf(out, "cost      %.2f\n", q.CostAmount)
	fmt.Fprintf(out, "eta       %d min\n", q.EtaMinutes)
}
