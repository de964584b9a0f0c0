package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage workspaces",
}

var workspaceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a workspace from a region selection",
	Long: `Create a workspace from a rectangle, circle or polygon selection and
make it the active workspace.

  mapscope workspace create --name cambridge --rect 52.195,0.12,52.205,0.145
  mapscope workspace create --name ring --circle 52.2,0.13,52.21,0.13
  mapscope workspace create --name tri --poly "52.2,0.12;52.2,0.14;52.21,0.13"`,
	RunE: runWorkspaceCreate,
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces",
	RunE:  runWorkspaceList,
}

func init() {
	rootCmd.AddCommand(workspaceCmd)
	workspaceCmd.AddCommand(workspaceCreateCmd)
	workspaceCmd.AddCommand(workspaceListCmd)

	workspaceCreateCmd.Flags().String("name", "", "Workspace name")
	workspaceCreateCmd.Flags().String("rect", "", "Rectangle selection: lat1,lon1,lat2,lon2")
	workspaceCreateCmd.Flags().String("circle", "", "Circle selection: centerLat,centerLon,edgeLat,edgeLon")
	workspaceCreateCmd.Flags().String("poly", "", "Polygon selection: lat,lon;lat,lon;...")
	_ = workspaceCreateCmd.MarkFlagRequired("name")
}

func runWorkspaceCreate(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	rect, _ := cmd.Flags().GetString("rect")
	circle, _ := cmd.Flags().GetString("circle")
	poly, _ := cmd.Flags().GetString("poly")

	sel, err := parseSelection(rect, circle, poly)
	if err != nil {
		return err
	}

	ctx, err := openContext()
	if err != nil {
		return err
	}
	for _, d := range ctx.Workspaces() {
		if d.Name == name {
			return fmt.Errorf("workspace %q already exists", name)
		}
	}

	d := ctx.CreateWorkspace(name, sel)
	if err := ctx.SaveWorkspace(); err != nil {
		return err
	}

	fmt.Printf("created workspace %s (%s)\n", d.Name, d.ID)
	return nil
}

func runWorkspaceList(cmd *cobra.Command, args []string) error {
	ctx, err := openContext()
	if err != nil {
		return err
	}

	workspaces := ctx.Workspaces()
	if len(workspaces) == 0 {
		fmt.Println("no workspaces")
		return nil
	}

	active := ctx.Active()
	for _, d := range workspaces {
		marker := " "
		if active != nil && d.ID == active.ID {
			marker = "*"
		}
		dirty := ""
		if d.Dirty {
			dirty = " (missing request data)"
		}
		fmt.Printf("%s %-20s %s  %s  requests=%d%s\n",
			marker, d.Name, d.ID, string(d.Selection.Kind), len(d.Requests), dirty)
	}
	return nil
}
