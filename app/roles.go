package app

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crm-portal/portal-agent/internal/api"
	"github.com/crm-portal/portal-agent/internal/auth"
	"github.com/crm-portal/portal-agent/internal/roles"
)

func init() { //nolint: gochecknoinits
	rolesCmd.AddCommand(rolesListCmd, rolesPermissionsCmd, rolesAssignCmd)
	rootCmd.AddCommand(rolesCmd)
}

var (
	rolesCmd = &cobra.Command{
		Use:   "roles",
		Short: "Administer the organization's roles",
	}

	rolesListCmd = &cobra.Command{
		Use:   "list",
		Short: "List roles with their permissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := roles.New(api.New(cfg.API), nil)
			if err != nil {
				return err //nolint:wrapcheck
			}

			list, err := svc.List(cmd.Context())
			if err != nil {
				return err //nolint:wrapcheck
			}

			printRoles(cmd.OutOrStdout(), list)

			return nil
		},
	}

	rolesPermissionsCmd = &cobra.Command{
		Use:   "permissions",
		Short: "List the permission catalog grouped by resource",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := roles.New(api.New(cfg.API), nil)
			if err != nil {
				return err //nolint:wrapcheck
			}

			groups, err := svc.PermissionsByResource(cmd.Context())
			if err != nil {
				return err //nolint:wrapcheck
			}

			printCatalog(cmd.OutOrStdout(), groups)

			return nil
		},
	}

	rolesAssignCmd = &cobra.Command{
		Use:   "assign <role-id> [permission-id...]",
		Short: "Replace a role's permission set, no ids clears it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			svc, err := roles.New(api.New(cfg.API), nil)
			if err != nil {
				return err //nolint:wrapcheck
			}

			role, err := svc.AssignPermissions(cmd.Context(), ids[0], ids[1:])
			if err != nil {
				return err //nolint:wrapcheck
			}

			printRoles(cmd.OutOrStdout(), []auth.Role{*role})

			return nil
		},
	}
)

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))

	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", a, err)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

func printRoles(w io.Writer, list []auth.Role) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(tw, "ID\tNAME\tSYSTEM\tUSERS\tPERMISSIONS")

	for _, r := range list {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%t\t%d\t%s\n",
			r.ID, r.Name, r.IsSystemRole, r.AssignedUserCount, permissionKeys(r.Permissions))
	}

	_ = tw.Flush()
}

func printCatalog(w io.Writer, groups []auth.ResourceGroup) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(tw, "RESOURCE\tID\tACTION\tDESCRIPTION")

	for _, g := range groups {
		for _, p := range g.Permissions {
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", g.Resource, p.ID, p.Action, p.Description)
		}
	}

	_ = tw.Flush()
}

func permissionKeys(perms []auth.Permission) string {
	if len(perms) == 0 {
		return "-"
	}

	keys := make([]string, 0, len(perms))
	for _, p := range perms {
		keys = append(keys, p.Key())
	}

	return strings.Join(keys, ",")
}
