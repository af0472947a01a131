package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shaiso/Tripleo/internal/workflows"
)

// NewNodeCmd создаёт группу команд для baremetal-узлов.
func NewNodeCmd(clientsFn ClientsFn, outputFn OutputFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage baremetal nodes",
	}

	cmd.AddCommand(
		newNodeImportCmd(clientsFn, outputFn),
		newNodeIntrospectCmd(clientsFn),
		newNodeProvideCmd(clientsFn),
		newNodeConfigureCmd(clientsFn),
		newNodeDiscoverCmd(clientsFn, outputFn),
	)

	return cmd
}

// bootFlags — общие флаги образа развёртывания.
type bootFlags struct {
	kernel     string
	ramdisk    string
	bootOption string
}

func (f *bootFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kernel, "deploy-kernel", workflows.DefaultKernelName, "Image with deploy kernel")
	cmd.Flags().StringVar(&f.ramdisk, "deploy-ramdisk", workflows.DefaultRamdiskName, "Image with deploy ramdisk")
	cmd.Flags().StringVar(&f.bootOption, "instance-boot-option", "", "Whether to set instances for booting from local hard drive (local) or network (netboot)")
}

// afterEnroll — introspection и provide только что зарегистрированных узлов.
type afterEnroll struct {
	introspect     bool
	runValidations bool
	provide        bool
}

func (f *afterEnroll) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.introspect, "introspect", false, "Introspect the imported nodes")
	cmd.Flags().BoolVar(&f.runValidations, "run-validations", false, "Run the pre-deployment validations")
	cmd.Flags().BoolVar(&f.provide, "provide", false, "Provide (make available) the nodes")
}

func (f *afterEnroll) run(ctx context.Context, wf Workflows, uuids []string) error {
	if len(uuids) == 0 {
		return nil
	}
	if f.introspect {
		if err := wf.Introspect(ctx, uuids, f.runValidations); err != nil {
			return err
		}
	}
	if f.provide {
		if err := wf.Provide(ctx, uuids); err != nil {
			return err
		}
	}
	return nil
}

func newNodeImportCmd(clientsFn ClientsFn, outputFn OutputFn) *cobra.Command {
	var boot bootFlags
	var after afterEnroll
	var noDeployImage bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import baremetal nodes from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := LoadNodes(args[0])
			if err != nil {
				return err
			}

			in := workflows.RegisterInput{
				Nodes:              nodes,
				KernelName:         boot.kernel,
				RamdiskName:        boot.ramdisk,
				InstanceBootOption: boot.bootOption,
			}
			if noDeployImage {
				in.KernelName, in.RamdiskName = "", ""
			}

			return withClients(clientsFn, func(c *Clients) error {
				registered, err := c.Workflows.RegisterOrUpdate(cmd.Context(), in)
				if err != nil {
					return err
				}

				printNodes(outputFn(), registered)
				return after.run(cmd.Context(), c.Workflows, nodeUUIDs(registered))
			})
		},
	}

	boot.register(cmd)
	after.register(cmd)
	cmd.Flags().BoolVar(&noDeployImage, "no-deploy-image", false, "Skip setting the deploy kernel and ramdisk")

	return cmd
}

func newNodeIntrospectCmd(clientsFn ClientsFn) *cobra.Command {
	var allManageable, provide, runValidations bool

	cmd := &cobra.Command{
		Use:   "introspect [NODE...]",
		Short: "Introspect specified nodes or all nodes in manageable state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := selectNodes(args, allManageable); err != nil {
				return err
			}

			return withClients(clientsFn, func(c *Clients) error {
				ctx := cmd.Context()

				if allManageable {
					if err := c.Workflows.IntrospectManageableNodes(ctx, runValidations); err != nil {
						return err
					}
					if provide {
						return c.Workflows.ProvideManageableNodes(ctx)
					}
					return nil
				}

				if err := c.Workflows.Introspect(ctx, args, runValidations); err != nil {
					return err
				}
				if provide {
					return c.Workflows.Provide(ctx, args)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&allManageable, "all-manageable", false, "Introspect all nodes currently in manageable state")
	cmd.Flags().BoolVar(&provide, "provide", false, "Provide (make available) the nodes once introspected")
	cmd.Flags().BoolVar(&runValidations, "run-validations", false, "Run the pre-deployment validations")

	return cmd
}

func newNodeProvideCmd(clientsFn ClientsFn) *cobra.Command {
	var allManageable bool

	cmd := &cobra.Command{
		Use:   "provide [NODE...]",
		Short: "Mark nodes as available based on UUIDs or current manageable state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := selectNodes(args, allManageable); err != nil {
				return err
			}

			return withClients(clientsFn, func(c *Clients) error {
				if allManageable {
					return c.Workflows.ProvideManageableNodes(cmd.Context())
				}
				return c.Workflows.Provide(cmd.Context(), args)
			})
		},
	}

	cmd.Flags().BoolVar(&allManageable, "all-manageable", false, "Provide all nodes currently in manageable state")

	return cmd
}

func newNodeConfigureCmd(clientsFn ClientsFn) *cobra.Command {
	var boot bootFlags
	var allManageable, overwrite bool
	var rootDevice string
	var rootDeviceMinSize int

	cmd := &cobra.Command{
		Use:   "configure [NODE...]",
		Short: "Configure node boot options",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := selectNodes(args, allManageable); err != nil {
				return err
			}

			in := workflows.ConfigureInput{
				NodeUUIDs:                args,
				KernelName:               boot.kernel,
				RamdiskName:              boot.ramdisk,
				InstanceBootOption:       boot.bootOption,
				RootDevice:               rootDevice,
				RootDeviceMinimumSize:    rootDeviceMinSize,
				OverwriteRootDeviceHints: overwrite,
			}

			return withClients(clientsFn, func(c *Clients) error {
				if allManageable {
					return c.Workflows.ConfigureManageableNodes(cmd.Context(), in)
				}
				return c.Workflows.Configure(cmd.Context(), in)
			})
		},
	}

	boot.register(cmd)
	cmd.Flags().BoolVar(&allManageable, "all-manageable", false, "Configure all nodes currently in manageable state")
	cmd.Flags().StringVar(&rootDevice, "root-device", "", "Define the root device for nodes (device name, comma-separated list, smallest or largest)")
	cmd.Flags().IntVar(&rootDeviceMinSize, "root-device-minimum-size", workflows.DefaultRootDeviceMinimumSize, "Minimum size (in GiB) of the detected root device")
	cmd.Flags().BoolVar(&overwrite, "overwrite-root-device-hints", false, "Overwrite existing root device hints when --root-device is used")

	return cmd
}

func newNodeDiscoverCmd(clientsFn ClientsFn, outputFn OutputFn) *cobra.Command {
	var boot bootFlags
	var after afterEnroll
	var ips, credentials []string
	var ipRange string
	var ports []int

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover overcloud nodes by polling their BMCs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := workflows.ParseCredentials(credentials)
			if err != nil {
				return err
			}

			in := workflows.DiscoverInput{
				IPAddresses:        ips,
				Range:              ipRange,
				Credentials:        creds,
				Ports:              ports,
				KernelName:         boot.kernel,
				RamdiskName:        boot.ramdisk,
				InstanceBootOption: boot.bootOption,
			}

			return withClients(clientsFn, func(c *Clients) error {
				registered, err := c.Workflows.DiscoverAndEnroll(cmd.Context(), in)
				if err != nil {
					return err
				}

				printNodes(outputFn(), registered)
				return after.run(cmd.Context(), c.Workflows, nodeUUIDs(registered))
			})
		},
	}

	boot.register(cmd)
	after.register(cmd)
	cmd.Flags().StringSliceVar(&ips, "ip", nil, "IP address(es) to probe")
	cmd.Flags().StringVar(&ipRange, "range", "", "IP range to probe (CIDR)")
	cmd.Flags().StringArrayVar(&credentials, "credentials", nil, "Key/value pairs of possible credentials (USER:PASSWORD)")
	cmd.Flags().IntSliceVar(&ports, "port", nil, "BMC port(s) to probe")
	cmd.MarkFlagsMutuallyExclusive("ip", "range")
	cmd.MarkFlagsOneRequired("ip", "range")
	cmd.MarkFlagRequired("credentials")

	return cmd
}
