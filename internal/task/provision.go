package task

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

// provisionWorker はプロビジョニングを実行するワーカー
// .envの書き換え完了で10%、スクリプト完了で100%となる
func (r *Runner) provisionWorker(params ProvisionParams, alive func() bool) {
	ctx := context.Background()

	devMode := "false"
	if params.DevMode {
		devMode = "true"
	}
	if err := updateEnvFile(r.workspace.EnvFile, "DEV_MODE", devMode); err != nil {
		log.Printf("エラー: %v", err)
		r.manager.State().Fail(KindProvision)
		return
	}
	r.manager.State().Set(KindProvision, 10)

	if !alive() {
		log.Printf("プロビジョニングがキャンセルされました")
		r.manager.State().Fail(KindProvision)
		return
	}

	command := fmt.Sprintf("cd %s && %s %s", r.workspace.BuildDir, r.workspace.ProvisionScript, r.workspace.ComposeFile)
	if ok, detail, _ := r.exec.Run(ctx, command, false); !ok {
		log.Printf("エラー: プロビジョニングに失敗: %s", detail)
		r.manager.State().Fail(KindProvision)
		return
	}

	r.manager.State().Complete(KindProvision)
	log.Printf("プロビジョニングが完了しました")
}

// updateEnvFile は.envファイルの指定キーの値を書き換える
// 対象キー以外の行はコメントや空行も含めてそのまま保持する
func updateEnvFile(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf(".envファイルの読み込みに失敗: [%s]: %w", path, err)
	}

	found := false
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), key+"=") {
			lines[i] = fmt.Sprintf("%s=%s", key, value)
			found = true
		}
	}
	if !found {
		return fmt.Errorf(".envファイルにキーが存在しません: [%s]: %s", path, key)
	}

	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return fmt.Errorf(".envファイルの書き込みに失敗: [%s]: %w", path, err)
	}
	return nil
}
