package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/probelab/flowboard/pkg/editor"
	"github.com/probelab/flowboard/pkg/flows"
	"github.com/probelab/flowboard/pkg/registry"
)

// session is the offline wiring used by the tool subcommands: same stores
// as the server, no HTTP, synchronous persistence
type session struct {
	app        *App
	controller *editor.Controller
}

func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger(cfg.Logging)

	provider, err := newStorageProvider(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if err := provider.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	flowMgr := flows.NewManager(provider.GetDocumentStore(), flows.Options{
		Logger:      logger,
		Synchronous: true,
	})
	reg := registry.NewCustomNodeRegistry(provider.GetCustomNodeStore(), logger)

	controller, err := editor.NewController(flowMgr, reg, editor.Options{Logger: logger})
	if err != nil {
		provider.Close()
		return nil, err
	}

	return &session{
		app: &App{
			provider: provider,
			flows:    flowMgr,
			registry: reg,
			logger:   logger,
		},
		controller: controller,
	}, nil
}

func (s *session) close() {
	s.controller.Close()
	s.app.flows.Close()
	s.app.provider.Close()
}

func exportCmd() *cobra.Command {
	var flowID string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the active flow's graph to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			if flowID != "" {
				if err := s.controller.SelectFlow(flowID); err != nil {
					return err
				}
			}

			data, err := s.controller.ExportJSON()
			if err != nil {
				return err
			}

			path := output
			if path == "" {
				path = s.controller.ExportFilename()
			}
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}

			fmt.Printf("Exported to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&flowID, "flow", "", "Flow id to export (default: active flow)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	return cmd
}

func importCmd() *cobra.Command {
	var flowID string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the active flow's graph from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read import file: %w", err)
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			if flowID != "" {
				if err := s.controller.SelectFlow(flowID); err != nil {
					return err
				}
			}

			if err := s.controller.ImportJSON(data); err != nil {
				return err
			}

			nodes, edges, _ := s.controller.Graph()
			fmt.Printf("Imported %d nodes and %d edges\n", len(nodes), len(edges))
			return nil
		},
	}

	cmd.Flags().StringVar(&flowID, "flow", "", "Flow id to import into (default: active flow)")
	return cmd
}

func nodeTypesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodetypes",
		Short: "Node type management",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available node types",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			for _, tag := range registry.BuiltinTypes() {
				nt := s.app.registry.ResolveType(tag)
				fmt.Printf("%-40s %s (builtin)\n", tag, nt.Name)
			}
			for _, def := range s.app.registry.List() {
				fmt.Printf("%-40s %s\n", def.ID, def.Name)
			}
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Register a custom node type from a YAML definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read definition file: %w", err)
			}

			def, err := registry.ParseDefinitionYAML(data)
			if err != nil {
				return err
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			saved, err := s.app.registry.Upsert(def)
			if err != nil {
				return err
			}

			fmt.Printf("Registered custom node type %s (%s)\n", saved.Name, saved.ID)
			return nil
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Print a custom node type definition as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			def, err := s.app.registry.Resolve(args[0])
			if err != nil {
				return err
			}

			data, err := registry.EncodeDefinitionYAML(def)
			if err != nil {
				return err
			}

			fmt.Print(string(data))
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a custom node type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			return s.app.registry.Delete(args[0])
		},
	}

	cmd.AddCommand(listCmd, importCmd, exportCmd, deleteCmd)
	return cmd
}
