package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/reglet-dev/reglet-plugin-registry/config"
	"github.com/reglet-dev/reglet-plugin-registry/plugin"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/factory"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/metrics"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/watch"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	factories  *factory.Registry
	prompter   Prompter
}

func (o *rootOptions) open(cmd *cobra.Command) (*app, error) {
	return openApp(cmd.Context(), o.configPath, o.factories, cmd.ErrOrStderr())
}

// withApp opens the registry, runs fn and releases the loader.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := o.open(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(cmd.Context()); err != nil {
			a.logger.Warn("failed to close loader", "error", err)
		}
	}()
	return fn(cmd.Context(), a)
}

func newRootCommand(factories *factory.Registry, prompter Prompter) *cobra.Command {
	o := &rootOptions{factories: factories, prompter: prompter}

	cmd := &cobra.Command{
		Use:           "reglet-plugins",
		Short:         "Manage reglet host plugins",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&o.configPath, "config", config.DefaultPath(), "configuration file")

	cmd.AddCommand(
		newListCommand(o),
		newInstallCommand(o),
		newUninstallCommand(o),
		newEnableCommand(o, true),
		newEnableCommand(o, false),
		newDiscoverCommand(o),
		newLibrariesCommand(o),
		newServeCommand(o),
		newConfigSchemaCommand(),
	)
	return cmd
}

func newListCommand(o *rootOptions) *cobra.Command {
	var (
		all        bool
		capability string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withApp(cmd, func(_ context.Context, a *app) error {
				var ds []*entities.Descriptor
				switch {
				case capability != "":
					ds = a.manager.ListByCapability(values.Capability(capability), all)
				case all:
					ds = a.manager.ListAll()
				default:
					for _, d := range a.manager.ListAll() {
						if d.IsEnabled() {
							ds = append(ds, d)
						}
					}
				}
				return printDescriptors(cmd.OutOrStdout(), ds)
			})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include disabled plugins")
	cmd.Flags().StringVarP(&capability, "capability", "c", "", "only list plugins of this capability")
	return cmd
}

func newInstallCommand(o *rootOptions) *cobra.Command {
	var (
		source   string
		force    bool
		disabled bool
	)
	cmd := &cobra.Command{
		Use:   "install CLASS",
		Short: "Install a plugin class",
		Long: `Install a plugin class, optionally from an archive or directory.

A plugin whose code is already served by an enabled plugin is rejected
unless --force is given, which disables the other plugin. In an
interactive terminal you are asked instead.`,
		Example: `  # Install a wasm plugin from an archive
  reglet-plugins install com.example.csv.Exporter --source ./csv-exporter.zip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app) error {
				req := plugin.InstallRequest{ClassName: args[0], Source: source, Force: force, Enable: !disabled}
				d, err := a.manager.Install(ctx, req)

				var conflict *entities.CodeConflictError
				if errors.As(err, &conflict) && o.prompter != nil && o.prompter.IsInteractive() {
					ok, perr := o.prompter.ConfirmForce(conflict)
					if perr != nil {
						return perr
					}
					if ok {
						req.Force = true
						d, err = a.manager.Install(ctx, req)
					}
				}
				if err != nil {
					return err
				}

				if err := a.manager.Save(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Installed %s\n", d)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", "", "archive or directory providing the class")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip dependency checks and disable conflicting plugins")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "install the plugin disabled")
	return cmd
}

func newUninstallCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall UNIQUE_ID",
		Short: "Uninstall every version of a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app) error {
				ds, err := findInstalled(a.manager, args[0])
				if err != nil {
					return err
				}

				removed := 0
				for _, d := range ds {
					if d.IsBuiltIn() {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s is built in and cannot be uninstalled\n", d)
						continue
					}
					if a.manager.Uninstall(ctx, d) {
						removed++
						fmt.Fprintf(cmd.OutOrStdout(), "Uninstalled %s\n", d)
					}
				}
				if removed == 0 {
					return fmt.Errorf("nothing uninstalled for %s", args[0])
				}
				return a.manager.Save(ctx)
			})
		},
	}
}

func newEnableCommand(o *rootOptions, enable bool) *cobra.Command {
	use, short, done := "enable", "Enable the highest installed version of a plugin", "Enabled"
	if !enable {
		use, short, done = "disable", "Disable every version of a plugin", "Disabled"
	}

	return &cobra.Command{
		Use:   use + " UNIQUE_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app) error {
				ds, err := findInstalled(a.manager, args[0])
				if err != nil {
					return err
				}

				targets := ds
				if enable {
					targets = []*entities.Descriptor{highest(ds)}
				}
				for _, d := range targets {
					if err := a.manager.SetEnabled(d, enable); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", done, d)
				}
				return a.manager.Save(ctx)
			})
		},
	}
}

func newDiscoverCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discover PATH",
		Short: "List the plugins an archive or directory provides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app) error {
				ds, err := a.manager.Discover(ctx, args[0])
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "CLASS\tCAPABILITY\tCODE\tUNIQUE ID\tVERSION\tINSTALLED")
				for _, d := range ds {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n",
						d.ClassName(), d.Capability(), d.Code(), d.UniqueID(), d.Version(), a.manager.IsInstalled(d))
				}
				return w.Flush()
			})
		},
	}
}

func newLibrariesCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "libraries",
		Short: "List the archives and directories plugins are loaded from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withApp(cmd, func(_ context.Context, a *app) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SOURCE\tDIGEST\tPLUGINS")
				for _, lib := range a.manager.Libraries() {
					digest := "-"
					if !lib.Digest.IsZero() {
						digest = lib.Digest.String()
					}
					fmt.Fprintf(w, "%s\t%s\t%d\n", lib.Path, digest, len(lib.Descriptors))
				}
				return w.Flush()
			})
		},
	}
}

func newServeCommand(o *rootOptions) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the registry loaded, exporting metrics and watching the auto-install directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				return serve(ctx, a, metricsAddr)
			})
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9464", "address serving /metrics; empty disables it")
	return cmd
}

func serve(ctx context.Context, a *app, metricsAddr string) error {
	reg := prometheus.NewRegistry()
	if _, err := metrics.Register(reg, a.manager); err != nil {
		return err
	}

	errCh := make(chan error, 2)
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		a.logger.Info("serving metrics", "addr", metricsAddr)
	}

	if a.cfg.WatchAutoInstall && a.cfg.AutoInstallDir != "" {
		if err := os.MkdirAll(a.cfg.AutoInstallDir, 0o750); err != nil {
			return fmt.Errorf("create auto-install directory: %w", err)
		}
		w, err := watch.New(a.cfg.AutoInstallDir, a.manager, watch.WithLogger(a.logger))
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()
		go func() {
			errCh <- w.Run(ctx)
		}()
		a.logger.Info("watching auto-install directory", "dir", a.cfg.AutoInstallDir)
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func newConfigSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config-schema",
		Short: "Print the JSON schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(schema))
			return err
		},
	}
}

func printDescriptors(out io.Writer, ds []*entities.Descriptor) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CAPABILITY\tCODE\tUNIQUE ID\tVERSION\tSTATUS\tSOURCE")
	for _, d := range ds {
		status := "disabled"
		if d.IsEnabled() {
			status = "enabled"
		}
		if d.IsBuiltIn() {
			status += ",built-in"
		}
		source := d.Source()
		if source == "" {
			source = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Capability(), d.Code(), d.UniqueID(), d.Version(), status, source)
	}
	return w.Flush()
}

func findInstalled(m *plugin.Manager, uniqueID string) ([]*entities.Descriptor, error) {
	var out []*entities.Descriptor
	for _, d := range m.ListAll() {
		if d.UniqueID() == uniqueID {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil, &entities.PluginNotFoundError{Descriptor: uniqueID}
	}
	return out, nil
}

func highest(ds []*entities.Descriptor) *entities.Descriptor {
	best := ds[0]
	for _, d := range ds[1:] {
		if d.Version().Compare(best.Version()) > 0 {
			best = d
		}
	}
	return best
}
