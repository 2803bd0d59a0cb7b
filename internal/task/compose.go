package task

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServicesFromCompose はcomposeマニフェストからサービス名一覧を取得する
// マニフェストに記述された順序を保持して返す
func ServicesFromCompose(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("マニフェストの読み込みに失敗: [%s]: %w", path, err)
	}

	var doc struct {
		Services yaml.Node `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("マニフェストの解析に失敗: [%s]: %w", path, err)
	}

	if doc.Services.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("不正なマニフェスト: servicesが定義されていません: %s", path)
	}

	// MappingNodeのContentはキーと値が交互に並ぶ
	services := make([]string, 0, len(doc.Services.Content)/2)
	for i := 0; i < len(doc.Services.Content); i += 2 {
		services = append(services, doc.Services.Content[i].Value)
	}
	return services, nil
}
