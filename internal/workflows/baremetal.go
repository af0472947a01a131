package workflows

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shaiso/Tripleo/internal/domain"
)

// Имена baremetal workflows.
const (
	WorkflowRegisterOrUpdate          = "tripleo.baremetal.v1.register_or_update"
	WorkflowProvide                   = "tripleo.baremetal.v1.provide"
	WorkflowIntrospect                = "tripleo.baremetal.v1.introspect"
	WorkflowIntrospectManageableNodes = "tripleo.baremetal.v1.introspect_manageable_nodes"
	WorkflowProvideManageableNodes    = "tripleo.baremetal.v1.provide_manageable_nodes"
	WorkflowConfigure                 = "tripleo.baremetal.v1.configure"
	WorkflowConfigureManageableNodes  = "tripleo.baremetal.v1.configure_manageable_nodes"
	WorkflowCreateRaidConfiguration   = "tripleo.baremetal.v1.create_raid_configuration"
	WorkflowDiscoverAndEnroll         = "tripleo.baremetal.v1.discover_and_enroll_nodes"
)

// RegisterOrUpdate регистрирует узлы (или обновляет существующие).
func (r *Runner) RegisterOrUpdate(ctx context.Context, in RegisterInput) ([]domain.Node, error) {
	if err := checkStruct(in); err != nil {
		return nil, err
	}

	input, err := toInput(in)
	if err != nil {
		return nil, err
	}

	res, err := r.Execute(ctx, WorkflowRegisterOrUpdate, input)
	if err != nil {
		return nil, err
	}

	if !res.Succeeded() {
		return nil, res.Fail(ErrRegisterOrUpdate, "Exception registering nodes: "+res.Payload.Message())
	}
	return r.registeredNodes(res)
}

// DiscoverAndEnroll ищет BMC по адресам и регистрирует найденные узлы.
func (r *Runner) DiscoverAndEnroll(ctx context.Context, in DiscoverInput) ([]domain.Node, error) {
	if err := checkStruct(in); err != nil {
		return nil, err
	}

	input, err := toInput(in)
	if err != nil {
		return nil, err
	}
	if in.Range != "" {
		input["ip_addresses"] = in.Range
	} else {
		input["ip_addresses"] = in.IPAddresses
	}

	res, err := r.Execute(ctx, WorkflowDiscoverAndEnroll, input)
	if err != nil {
		return nil, err
	}

	if !res.Succeeded() {
		return nil, res.Fail(ErrRegisterOrUpdate, "Exception discovering nodes: "+res.Payload.Message())
	}
	return r.registeredNodes(res)
}

func (r *Runner) registeredNodes(res *Result) ([]domain.Node, error) {
	var nodes []domain.Node
	if err := res.Payload.Decode("registered_nodes", &nodes); err != nil {
		return nil, fmt.Errorf("%s: %w", res.Workflow, err)
	}

	for _, node := range nodes {
		r.println(fmt.Sprintf("Successfully registered node UUID %s", node.UUID))
	}
	return nodes, nil
}

// Provide переводит узлы в состояние available.
func (r *Runner) Provide(ctx context.Context, nodeUUIDs []string) error {
	if err := checkNodeUUIDs(nodeUUIDs); err != nil {
		return err
	}

	res, err := r.Execute(ctx, WorkflowProvide, map[string]any{
		"node_uuids": nodeUUIDs,
	})
	if err != nil {
		return err
	}

	if !res.Succeeded() {
		return res.Fail(ErrNodeProvide, "Failed to set nodes to available state: "+formatProvideErrors(res.Payload))
	}
	return nil
}

// formatProvideErrors оставляет последнюю строку каждого result в message.
//
// При вложенных workflows текст ошибки накапливается от задачи
// к задаче, полезна обычно только последняя строка. Отсутствующий
// message даёт пустую строку; message, который не разобрать, — "Failed.".
func formatProvideErrors(payload domain.Payload) string {
	raw, ok := payload["message"]
	if !ok {
		return ""
	}
	messages, ok := raw.([]any)
	if !ok {
		return "Failed."
	}

	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		entry, ok := m.(map[string]any)
		if !ok {
			return "Failed."
		}
		var result string
		if v, present := entry["result"]; present {
			if result, ok = v.(string); !ok {
				return "Failed."
			}
		}
		result = strings.TrimRight(result, "\n")
		if i := strings.LastIndex(result, "\n"); i >= 0 {
			result = result[i+1:]
		}
		lines = append(lines, result)
	}
	return strings.Join(lines, "\n")
}

// Introspect запускает introspection указанных узлов.
func (r *Runner) Introspect(ctx context.Context, nodeUUIDs []string, runValidations bool) error {
	if err := checkNodeUUIDs(nodeUUIDs); err != nil {
		return err
	}

	r.println("Waiting for introspection to finish...")

	res, err := r.Execute(ctx, WorkflowIntrospect, map[string]any{
		"node_uuids":      nodeUUIDs,
		"run_validations": runValidations,
	})
	if err != nil {
		return err
	}

	if !res.Succeeded() {
		return res.Fail(ErrIntrospection,
			"Introspection completed with errors:\n"+strings.Join(res.Payload.MessageLines(), "\n"))
	}

	r.println("Successfully introspected all nodes.")
	r.println("Introspection completed.")
	return nil
}

// IntrospectManageableNodes запускает introspection всех узлов в manageable.
func (r *Runner) IntrospectManageableNodes(ctx context.Context, runValidations bool) error {
	r.println("Waiting for introspection to finish...")

	res, err := r.Execute(ctx, WorkflowIntrospectManageableNodes, map[string]any{
		"run_validations": runValidations,
	})
	if err != nil {
		return err
	}

	if !res.Succeeded() {
		return res.Fail(ErrIntrospection, "Exception introspecting nodes: "+res.Payload.Message())
	}

	var introspected map[string]domain.IntrospectionResult
	if res.Payload["introspected_nodes"] != nil {
		if err := res.Payload.Decode("introspected_nodes", &introspected); err != nil {
			return fmt.Errorf("%s: %w", res.Workflow, err)
		}
	}

	// Порядок узлов в map не определён
	uuids := make([]string, 0, len(introspected))
	for uuid := range introspected {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)

	var errs []string
	for _, uuid := range uuids {
		if status := introspected[uuid]; status.Failed() {
			errs = append(errs, fmt.Sprintf("%s: %s", uuid, *status.Error))
		}
	}
	if len(errs) > 0 {
		return res.Fail(ErrIntrospection, "Introspection completed with errors:\n"+strings.Join(errs, "\n"))
	}

	r.println("Introspection completed.")
	return nil
}

// ProvideManageableNodes переводит все manageable узлы в available.
func (r *Runner) ProvideManageableNodes(ctx context.Context) error {
	res, err := r.Execute(ctx, WorkflowProvideManageableNodes, nil)
	if err != nil {
		return err
	}

	if !res.Succeeded() {
		return res.Fail(ErrNodeProvide, "Exception providing nodes:"+res.Payload.Message())
	}

	r.println(res.Payload.Message())
	return nil
}

// Configure настраивает параметры загрузки указанных узлов.
func (r *Runner) Configure(ctx context.Context, in ConfigureInput) error {
	if err := checkNodeUUIDs(in.NodeUUIDs); err != nil {
		return err
	}
	if err := checkStruct(in); err != nil {
		return err
	}

	input, err := toInput(in)
	if err != nil {
		return err
	}

	res, err := r.Execute(ctx, WorkflowConfigure, input)
	if err != nil {
		return err
	}

	if !res.Succeeded() {
		return res.Fail(ErrNodeConfiguration, "Failed to configure nodes: "+res.Payload.Message())
	}
	return nil
}

// ConfigureManageableNodes настраивает параметры загрузки всех manageable узлов.
func (r *Runner) ConfigureManageableNodes(ctx context.Context, in ConfigureInput) error {
	in.NodeUUIDs = nil
	if err := checkStruct(in); err != nil {
		return err
	}

	input, err := toInput(in)
	if err != nil {
		return err
	}

	res, err := r.Execute(ctx, WorkflowConfigureManageableNodes, input)
	if err != nil {
		return err
	}

	if !res.Succeeded() {
		return res.Fail(ErrNodeConfiguration, "Exception configuring nodes: "+res.Payload.Message())
	}

	r.println(res.Payload.Message())
	return nil
}

// CreateRaidConfiguration применяет RAID-конфигурацию к узлам.
func (r *Runner) CreateRaidConfiguration(ctx context.Context, in RaidInput) error {
	if err := checkStruct(in); err != nil {
		return err
	}

	input, err := toInput(in)
	if err != nil {
		return err
	}

	r.println("Creating RAID configuration for given nodes, this may take time")

	res, err := r.Execute(ctx, WorkflowCreateRaidConfiguration, input)
	if err != nil {
		return err
	}

	if !res.Succeeded() {
		return res.Fail(ErrRaidConfiguration, "Failed to create RAID: "+res.Payload.Message())
	}

	r.println("Success")
	return nil
}
