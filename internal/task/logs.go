package task

import (
	"encoding/base64"
	"fmt"
	"os"
)

// Logs は指定されたタスクのログをbase64エンコードして返す
// キーはタスク種別、値はエンコード済みのログ本文。
// ログを持たないタスク種別が含まれている場合はエラーを返す
func (r *Runner) Logs(tasks []string) (map[string]string, error) {
	logs := make(map[string]string, len(tasks))
	for _, t := range tasks {
		switch Kind(t) {
		case KindBuild:
			data, err := os.ReadFile(r.workspace.BuildLogFile)
			if err != nil {
				return nil, fmt.Errorf("ビルドログの読み込みに失敗: [%s]: %w", r.workspace.BuildLogFile, err)
			}
			logs[t] = base64.StdEncoding.EncodeToString(data)
		default:
			return nil, fmt.Errorf("ログを取得できないタスクです: %s", t)
		}
	}
	return logs, nil
}
