package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pkordes/trip-basecamp/internal/basecamp"
	"github.com/pkordes/trip-basecamp/internal/domain"
)

func newGetCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the trip's shared basecamp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, v, false, nil)
			if err != nil {
				return err
			}
			b, err := s.coord.Refresh(cmd.Context(), s.TripID)
			if err != nil {
				return err
			}
			printBasecamp(cmd.OutOrStdout(), b)
			return nil
		},
	}
}

func newSetCmd(v *viper.Viper) *cobra.Command {
	var in fieldFlags
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the trip's shared basecamp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fields, err := in.fields(cmd)
			if err != nil {
				return err
			}
			s, err := openSession(cmd, v, true, nil)
			if err != nil {
				return err
			}
			// The current version is the base of the conditional write.
			if _, err := s.coord.Refresh(cmd.Context(), s.TripID); err != nil {
				return err
			}
			res, err := s.coord.SetShared(cmd.Context(), s.TripID, fields)
			return reportShared(cmd.OutOrStdout(), res, err)
		},
	}
	in.register(cmd)
	return cmd
}

func newClearCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the trip's shared basecamp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, v, true, nil)
			if err != nil {
				return err
			}
			if _, err := s.coord.Refresh(cmd.Context(), s.TripID); err != nil {
				return err
			}
			res, err := s.coord.ClearShared(cmd.Context(), s.TripID)
			return reportShared(cmd.OutOrStdout(), res, err)
		},
	}
}

func newWatchCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print changes made by other members until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			notes := make(chan basecamp.Notification, 16)
			s, err := openSession(cmd, v, false, func(n basecamp.Notification) {
				select {
				case notes <- n:
				default:
				}
			})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			l, err := s.coord.Listen(ctx, s.TripID)
			if err != nil {
				return err
			}
			defer l.Close()

			// Subscribe first, then load, so no change is missed in between.
			b, err := s.coord.Refresh(ctx, s.TripID)
			if err != nil {
				return err
			}
			printBasecamp(out, b)

			for {
				select {
				case <-ctx.Done():
					return nil
				case n := <-notes:
					fmt.Fprintln(out, n.Message)
				}
			}
		},
	}
}

// fieldFlags are the editable basecamp fields shared by set commands.
type fieldFlags struct {
	name    string
	address string
	lat     float64
	lng     float64
}

func (f *fieldFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "display name, e.g. a hotel name")
	cmd.Flags().StringVar(&f.address, "address", "", "address (required)")
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "latitude of the map pin")
	cmd.Flags().Float64Var(&f.lng, "lng", 0, "longitude of the map pin")
	cmd.MarkFlagsRequiredTogether("lat", "lng")
}

func (f *fieldFlags) fields(cmd *cobra.Command) (domain.BasecampFields, error) {
	out := domain.BasecampFields{Name: f.name, Address: f.address}
	if cmd.Flags().Changed("lat") {
		out.Coordinates = &domain.Coordinates{Lat: f.lat, Lng: f.lng}
	}
	return out, nil
}

func reportShared(w io.Writer, res basecamp.Result[domain.Basecamp], err error) error {
	var conflict *basecamp.ConflictError
	switch {
	case errors.As(err, &conflict):
		fmt.Fprintln(w, "Another member changed the basecamp first. Current basecamp:")
		printBasecamp(w, res.Record)
		return err
	case err != nil:
		return err
	}
	fmt.Fprintf(w, "%s.\n", res.State)
	printBasecamp(w, res.Record)
	return nil
}

func printBasecamp(w io.Writer, b *domain.Basecamp) {
	if b == nil {
		fmt.Fprintln(w, "No basecamp set.")
		return
	}
	if b.Name != "" {
		fmt.Fprintf(w, "%s\n", b.Name)
	}
	fmt.Fprintf(w, "%s\n", b.Address)
	if c := b.Coordinates; c != nil {
		fmt.Fprintf(w, "(%.6f, %.6f)\n", c.Lat, c.Lng)
	}
	fmt.Fprintf(w, "version %d\n", b.Version)
}
