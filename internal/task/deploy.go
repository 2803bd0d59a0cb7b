package task

import (
	"context"
	"fmt"
	"log"
)

// deployWorker はイメージ転送とワークスペース同期を実行するワーカー
// イメージN個の転送がそれぞれ 100/(N+1) ずつ進捗を進め、
// 最後のrsync同期で100%に到達する
func (r *Runner) deployWorker(params DeployParams, alive func() bool) {
	ctx := context.Background()

	total := len(params.Images)
	for i, img := range params.Images {
		// イメージの区切りでキャンセル要求を確認する
		if !alive() {
			log.Printf("デプロイがキャンセルされました")
			r.manager.State().Fail(KindDeploy)
			return
		}

		// イメージをアーカイブ経由でリモートにロードする
		command := fmt.Sprintf(
			`docker save %s | bzip2 | sshpass -p %q ssh -o StrictHostKeyChecking=no %s@%s docker load`,
			img, params.Password, params.Username, params.Host)
		if ok, detail, _ := r.exec.Run(ctx, command, false); !ok {
			log.Printf("エラー: イメージ %s の転送に失敗: %s", img, detail)
			r.manager.State().Fail(KindDeploy)
			return
		}

		r.manager.State().Set(KindDeploy, (i+1)*100/(total+1))
		log.Printf("イメージ転送完了 (%d/%d): %s", i+1, total, img)
	}

	if !alive() {
		log.Printf("デプロイがキャンセルされました")
		r.manager.State().Fail(KindDeploy)
		return
	}

	// ビルドディレクトリをリモートの配置先に同期する
	command := fmt.Sprintf(
		`sshpass -p %q rsync -r -e "ssh -o StrictHostKeyChecking=no" -z %s %s@%s:%s`,
		params.Password, r.workspace.BuildDir, params.Username, params.Host, params.Path)
	if ok, detail, _ := r.exec.Run(ctx, command, false); !ok {
		log.Printf("エラー: ワークスペースの同期に失敗: %s", detail)
		r.manager.State().Fail(KindDeploy)
		return
	}

	r.manager.State().Complete(KindDeploy)
	log.Printf("デプロイが完了しました")
}
