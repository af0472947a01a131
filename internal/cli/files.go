package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Tripleo/internal/domain"
)

// LoadNodes читает описание узлов из JSON- или YAML-файла.
//
// Поддерживаются два формата: {"nodes": [...]} и список узлов
// на верхнем уровне. JSON разбирается тем же парсером, что и YAML.
func LoadNodes(path string) ([]domain.NodeDefinition, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("invalid nodes file %s: only JSON and YAML are supported", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read nodes file: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse nodes file %s: %w", path, err)
	}

	if m, ok := doc.(map[string]any); ok {
		doc = m["nodes"]
	}

	list, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid nodes file %s: expected a list of nodes", path)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("invalid nodes file %s: no nodes defined", path)
	}

	nodes := make([]domain.NodeDefinition, 0, len(list))
	for i, item := range list {
		node, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("invalid nodes file %s: node %d is not a mapping", path, i)
		}
		nodes = append(nodes, domain.NodeDefinition(node))
	}
	return nodes, nil
}

// LoadRaidConfiguration читает RAID-конфигурацию из файла или из
// строки JSON/YAML, переданной аргументом.
func LoadRaidConfiguration(arg string) (map[string]any, error) {
	data := []byte(arg)
	if !isInlineDocument(arg) {
		b, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("read RAID configuration: %w", err)
		}
		data = b
	}

	var conf map[string]any
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("invalid RAID configuration: %w", err)
	}

	disks, ok := conf["logical_disks"].([]any)
	if !ok {
		return nil, errors.New("invalid RAID configuration: logical_disks list is required")
	}
	for i, d := range disks {
		if _, ok := d.(map[string]any); !ok {
			return nil, fmt.Errorf("invalid RAID configuration: logical disk %d is not a mapping", i)
		}
	}
	return conf, nil
}

// isInlineDocument отличает JSON/YAML в аргументе от пути к файлу.
func isInlineDocument(arg string) bool {
	s := strings.TrimSpace(arg)
	return strings.HasPrefix(s, "{") || strings.Contains(s, "\n") || strings.HasPrefix(s, "logical_disks:")
}
