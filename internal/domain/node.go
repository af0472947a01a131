package domain

// Node — baremetal-узел, зарегистрированный workflow.
type Node struct {
	// UUID — идентификатор узла в сервисе baremetal.
	UUID string `json:"uuid"`

	// Name — имя узла (может быть пустым).
	Name string `json:"name,omitempty"`

	// ProvisionState — состояние provisioning (enroll, manageable, available...).
	ProvisionState string `json:"provision_state,omitempty"`

	// Driver — драйвер управления питанием.
	Driver string `json:"driver,omitempty"`
}

// IntrospectionResult — итог introspection одного узла.
type IntrospectionResult struct {
	// Finished — introspection завершена.
	Finished bool `json:"finished"`

	// Error — текст ошибки или nil, если ошибок не было.
	Error *string `json:"error"`
}

// Failed возвращает true, если introspection узла завершилась ошибкой.
func (r IntrospectionResult) Failed() bool {
	return r.Error != nil
}

// NodeDefinition — описание узла для регистрации (одна запись файла nodes).
//
// Поля pm_* передаются в workflow как есть; известные поля
// выделены для валидации.
type NodeDefinition map[string]any

// PMType возвращает тип power management (ipmi, redfish...).
func (n NodeDefinition) PMType() string {
	s, _ := n["pm_type"].(string)
	return s
}

// Name возвращает имя узла.
func (n NodeDefinition) Name() string {
	s, _ := n["name"].(string)
	return s
}
