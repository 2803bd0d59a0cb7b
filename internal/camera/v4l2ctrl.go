package camera

import (
	"context"
	"fmt"
	"log"
	"strings"

	"hakobiya/internal/executor"
)

// Controller はv4l2-ctl経由でカメラコントロールを取得・設定する
type Controller struct {
	exec executor.Executor
}

// NewController は新しいControllerを作成する
func NewController(exec executor.Executor) *Controller {
	return &Controller{exec: exec}
}

// GetConfig は指定されたデバイスのコントロール情報を取得する
// パラメータに"*"を指定すると全コントロールを返す
func (c *Controller) GetConfig(ctx context.Context, configs map[string][]string) (bool, string, map[string]map[string]map[string]string) {
	data := make(map[string]map[string]map[string]string)
	errorDetail := ""
	var failedDevices []string

	for device, params := range configs {
		ok, detail, output := c.exec.Run(ctx,
			fmt.Sprintf("v4l2-ctl -d %s -l", DevicePath(device)), false)
		if !ok {
			log.Printf("警告: カメラ %s のコントロール取得に失敗: %s", device, detail)
			data[device] = map[string]map[string]string{}
			failedDevices = append(failedDevices, device)
			continue
		}

		controls, err := parseCtrlList(output)
		if err != nil {
			log.Printf("警告: v4l2-ctl出力の解析に失敗: %v", err)
			data[device] = map[string]map[string]string{}
			failedDevices = append(failedDevices, device)
			continue
		}

		if len(params) == 0 || params[0] == "*" {
			data[device] = controls
			continue
		}

		data[device] = make(map[string]map[string]string)
		for _, param := range params {
			if control, exists := controls[param]; exists {
				data[device][param] = control
			}
		}
	}

	if len(failedDevices) > 0 {
		errorDetail = fmt.Sprintf("コントロール取得に失敗したデバイス: %v", failedDevices)
		return false, errorDetail, data
	}
	return true, "", data
}

// SetConfig は指定されたデバイスのコントロールを設定する
func (c *Controller) SetConfig(ctx context.Context, configs map[string]map[string]string) (bool, string) {
	status := true
	errorDetail := ""

	for device, params := range configs {
		for param, value := range params {
			ok, detail, output := c.exec.Run(ctx,
				fmt.Sprintf("v4l2-ctl -d %s -c %s=%s", DevicePath(device), param, value), false)
			log.Printf("v4l2-ctl出力: %s", output)
			if !ok {
				status = false
				errorDetail = detail
				log.Printf("エラー: カメラ %s のコントロール設定に失敗 - %s=%s: %s",
					device, param, value, detail)
			}
		}
	}
	return status, errorDetail
}

// parseCtrlList は `v4l2-ctl -l` の出力を解析する
//
// 行の例:
//
//	brightness 0x00980900 (int)    : min=-64 max=64 step=1 default=0 value=0
func parseCtrlList(text string) (map[string]map[string]string, error) {
	data := make(map[string]map[string]string)

	for _, line := range strings.Split(text, "\n") {
		tokens := strings.Fields(line)
		if len(tokens) <= 4 {
			continue
		}

		name := tokens[0]
		ctrlType := strings.Trim(tokens[2], "()")
		control := map[string]string{"type": ctrlType}

		for _, token := range tokens[4:] {
			keyValue := strings.SplitN(token, "=", 2)
			if len(keyValue) != 2 {
				return nil, fmt.Errorf("不正なトークン: %q", token)
			}
			control[keyValue[0]] = keyValue[1]
		}
		data[name] = control
	}
	return data, nil
}
