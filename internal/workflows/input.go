package workflows

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shaiso/Tripleo/internal/domain"
)

// validate — общий валидатор входных параметров.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Значения по умолчанию для настройки загрузки узлов.
const (
	DefaultKernelName            = "bm-deploy-kernel"
	DefaultRamdiskName           = "bm-deploy-ramdisk"
	DefaultInstanceBootOption    = "local"
	DefaultRootDeviceMinimumSize = 4
)

// RegisterInput — вход tripleo.baremetal.v1.register_or_update.
type RegisterInput struct {
	Nodes              []domain.NodeDefinition `json:"nodes_json" validate:"required,min=1,dive,required"`
	KernelName         string                  `json:"kernel_name,omitempty"`
	RamdiskName        string                  `json:"ramdisk_name,omitempty"`
	InstanceBootOption string                  `json:"instance_boot_option,omitempty" validate:"omitempty,oneof=local netboot"`
}

// ConfigureInput — вход tripleo.baremetal.v1.configure и configure_manageable_nodes.
//
// NodeUUIDs пустой для configure_manageable_nodes.
type ConfigureInput struct {
	NodeUUIDs                []string `json:"node_uuids,omitempty" validate:"omitempty,dive,required"`
	KernelName               string   `json:"kernel_name" validate:"required"`
	RamdiskName              string   `json:"ramdisk_name" validate:"required"`
	InstanceBootOption       string   `json:"instance_boot_option,omitempty" validate:"omitempty,oneof=local netboot"`
	RootDevice               string   `json:"root_device,omitempty"`
	RootDeviceMinimumSize    int      `json:"root_device_minimum_size" validate:"gte=0"`
	OverwriteRootDeviceHints bool     `json:"overwrite_root_device_hints"`
}

// RaidInput — вход tripleo.baremetal.v1.create_raid_configuration.
type RaidInput struct {
	NodeUUIDs     []string       `json:"node_uuids" validate:"required,min=1,dive,required"`
	Configuration map[string]any `json:"configuration" validate:"required"`
}

// DiscoverInput — вход tripleo.baremetal.v1.discover_and_enroll_nodes.
//
// Задаётся ровно одно из IPAddresses и Range.
type DiscoverInput struct {
	IPAddresses        []string   `json:"-" validate:"required_without=Range,excluded_with=Range,dive,ip"`
	Range              string     `json:"-" validate:"required_without=IPAddresses,omitempty,cidr"`
	Credentials        [][]string `json:"credentials" validate:"required,min=1,dive,len=2"`
	Ports              []int      `json:"ports,omitempty" validate:"dive,min=1,max=65535"`
	KernelName         string     `json:"kernel_name,omitempty"`
	RamdiskName        string     `json:"ramdisk_name,omitempty"`
	InstanceBootOption string     `json:"instance_boot_option,omitempty" validate:"omitempty,oneof=local netboot"`
}

// ParseCredentials разбирает значения вида USER:PASSWORD.
func ParseCredentials(values []string) ([][]string, error) {
	out := make([][]string, 0, len(values))
	for _, v := range values {
		user, password, ok := strings.Cut(v, ":")
		if !ok {
			return nil, invalidArgument("credentials must be in the form USER:PASSWORD, got %q", v)
		}
		out = append(out, []string{user, password})
	}
	return out, nil
}

// checkStruct проверяет теги validate и переводит ошибки в ErrInvalidArgument.
func checkStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return invalidArgument("%s", strings.Join(msgs, "; "))
}

// checkNodeUUIDs проверяет непустой список узлов.
func checkNodeUUIDs(nodeUUIDs []string) error {
	if err := validate.Var(nodeUUIDs, "required,min=1,dive,required"); err != nil {
		return invalidArgument("at least one node UUID is required")
	}
	return nil
}

// toInput превращает структуру входа в map по json-тегам.
func toInput(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal workflow input: %w", err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal workflow input: %w", err)
	}
	return out, nil
}
