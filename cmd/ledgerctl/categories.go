package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-finance-tracker/category"
	"github.com/goliatone/go-finance-tracker/model"
	"github.com/goliatone/go-finance-tracker/repositorycache"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "Manage the category tree of a user",
	}
	cmd.AddCommand(categoriesListCmd(), categoriesShowCmd(), categoriesCreateCmd(),
		categoriesUpdateCmd(), categoriesDeleteCmd())
	return cmd
}

func readOpts(cmd *cobra.Command) []repositorycache.ReadOption {
	if fresh, _ := cmd.Flags().GetBool("fresh"); fresh {
		return []repositorycache.ReadOption{repositorycache.Bypass()}
	}
	return nil
}

func categoriesListCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List root categories with their subcategories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := parseOwner(cmd)
			if err != nil {
				return err
			}
			views, err := app.Categories().List(cmd.Context(), owner, model.Kind(strings.ToUpper(kind)), readOpts(cmd)...)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), views)
		},
	}
	ownerFlag(cmd)
	cmd.Flags().StringVar(&kind, "type", "", "INCOME or EXPENSE")
	cmd.Flags().Bool("fresh", false, "skip the cache")
	return cmd
}

func categoriesShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a category with its parent and subcategories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := parseOwner(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("category id", args[0])
			if err != nil {
				return err
			}
			view, err := app.Categories().Get(cmd.Context(), owner, id, readOpts(cmd)...)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
	ownerFlag(cmd)
	cmd.Flags().Bool("fresh", false, "skip the cache")
	return cmd
}

func categoriesCreateCmd() *cobra.Command {
	var name, kind, parent string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := parseOwner(cmd)
			if err != nil {
				return err
			}
			in := category.CreateInput{Name: name, Kind: model.Kind(strings.ToUpper(kind))}
			if parent != "" {
				id, err := parseID("parent", parent)
				if err != nil {
					return err
				}
				in.ParentID = &id
			}
			view, err := app.Categories().Create(cmd.Context(), owner, in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
	ownerFlag(cmd)
	cmd.Flags().StringVar(&name, "name", "", "category name")
	cmd.Flags().StringVar(&kind, "type", "", "INCOME or EXPENSE")
	cmd.Flags().StringVar(&parent, "parent", "", "parent category id")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func categoriesUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename, retype or move a category",
		Long:  "Pass --parent \"\" to make the category a root.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := parseOwner(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("category id", args[0])
			if err != nil {
				return err
			}

			in := category.UpdateInput{Name: optionalString(cmd, "name")}
			if kind := optionalString(cmd, "type"); kind != nil {
				k := model.Kind(strings.ToUpper(*kind))
				in.Kind = &k
			}
			if parent := optionalString(cmd, "parent"); parent != nil {
				in.Parent = category.ClearParent()
				if *parent != "" {
					p, err := parseID("parent", *parent)
					if err != nil {
						return err
					}
					in.Parent = category.SetParent(p)
				}
			}

			view, err := app.Categories().Update(cmd.Context(), owner, id, in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
	ownerFlag(cmd)
	cmd.Flags().String("name", "", "new name")
	cmd.Flags().String("type", "", "new kind")
	cmd.Flags().String("parent", "", "new parent id")
	return cmd
}

func categoriesDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category without subcategories or transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := parseOwner(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("category id", args[0])
			if err != nil {
				return err
			}
			if err := app.Categories().Delete(cmd.Context(), owner, id); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"deleted": id.String()})
		},
	}
	ownerFlag(cmd)
	return cmd
}
