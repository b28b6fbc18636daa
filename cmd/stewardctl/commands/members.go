package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"stewardship/internal/giving/models"
	id "stewardship/pkg/domain"
)

type memberWriter interface {
	Upsert(ctx context.Context, m models.Member) error
}

func membersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Seed the member directory",
	}
	cmd.AddCommand(membersAddCmd())
	return cmd
}

func membersAddCmd() *cobra.Command {
	var (
		since  string
		status string
	)
	cmd := &cobra.Command{
		Use:   "add <member-id>",
		Short: "Insert or update a member row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, ok := appCtx.Members.(memberWriter)
			if !ok || appCtx.Storage != "postgres" {
				return fmt.Errorf("members add needs DATABASE_URL")
			}
			memberID, err := id.ParseMemberID(args[0])
			if err != nil {
				return err
			}
			joined, err := time.Parse(time.DateOnly, since)
			if err != nil {
				return fmt.Errorf("--since must be YYYY-MM-DD: %w", err)
			}
			st := models.MemberStatus(status)
			if !st.IsValid() {
				return fmt.Errorf("--status must be active or inactive, got %s", strconv.Quote(status))
			}
			return w.Upsert(cmd.Context(), models.Member{ID: memberID, MemberSince: joined, Status: st})
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "membership start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "status", string(models.MemberStatusActive), "active or inactive")
	_ = cmd.MarkFlagRequired("since")
	return cmd
}
