package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pkordes/trip-basecamp/internal/domain"
)

func newPersonalCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personal",
		Short: "Manage your own basecamp for the trip",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Show your personal basecamp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, v, true, nil)
			if err != nil {
				return err
			}
			p, err := s.store.GetPersonal(cmd.Context(), s.TripID, s.UserID)
			if err != nil {
				return err
			}
			printPersonal(cmd.OutOrStdout(), p)
			return nil
		},
	}

	var in fieldFlags
	set := &cobra.Command{
		Use:   "set",
		Short: "Replace your personal basecamp",
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
			res, err := s.personal.SetPersonal(cmd.Context(), s.TripID, s.UserID, fields)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s.\n", res.State)
			printPersonal(cmd.OutOrStdout(), res.Record)
			return nil
		},
	}
	in.register(set)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove your personal basecamp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, v, true, nil)
			if err != nil {
				return err
			}
			res, err := s.personal.ClearPersonal(cmd.Context(), s.TripID, s.UserID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s.\n", res.State)
			return nil
		},
	}

	cmd.AddCommand(get, set, clearCmd)
	return cmd
}

func printPersonal(w io.Writer, p *domain.PersonalBasecamp) {
	if p == nil {
		fmt.Fprintln(w, "No personal basecamp set.")
		return
	}
	if p.Name != "" {
		fmt.Fprintf(w, "%s\n", p.Name)
	}
	fmt.Fprintf(w, "%s\n", p.Address)
	if c := p.Coordinates; c != nil {
		fmt.Fprintf(w, "(%.6f, %.6f)\n", c.Lat, c.Lng)
	}
}
