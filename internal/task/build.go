package task

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// buildWorker はサービスのビルドを実行するワーカー
// 進捗は 完了サービス数*100/全サービス数 の床値で単調増加する。
// 一括ビルドの場合は開始直後に50%のチェックポイントのみ設定する
func (r *Runner) buildWorker(params BuildParams, alive func() bool) {
	ctx := context.Background()

	services := params.Services
	sequential := params.Sequential

	// 個別サービス指定時は常に逐次ビルドとなる
	if services[0] != "*" {
		sequential = true
	} else if sequential {
		// 全サービスの逐次ビルドはマニフェストから対象を展開する
		expanded, err := ServicesFromCompose(r.workspace.ComposeFile)
		if err != nil {
			log.Printf("エラー: %v", err)
			r.manager.State().Fail(KindBuild)
			return
		}
		services = expanded
	}

	// 前回のビルドログを削除する
	if ok, detail, _ := r.exec.Run(ctx, fmt.Sprintf("rm -f %s", r.workspace.BuildLogFile), false); !ok {
		log.Printf("エラー: ビルドログの削除に失敗: %s", detail)
		r.manager.State().Fail(KindBuild)
		return
	}

	noCache := ""
	if params.NoCache {
		noCache = " --no-cache"
	}

	if !sequential {
		// 一括ビルド。途中経過が取れないため50%のみ報告する
		r.manager.State().Set(KindBuild, 50)
		command := fmt.Sprintf("cd %s && docker-compose -f docker-compose-build.yml build%s >> %s 2>&1",
			r.workspace.BuildDir, noCache, r.workspace.BuildLogFile)
		if ok, detail, _ := r.exec.Run(ctx, command, false); !ok {
			log.Printf("エラー: ビルドに失敗: %s", detail)
			r.manager.State().Fail(KindBuild)
			return
		}
		r.manager.State().Complete(KindBuild)
		log.Printf("ビルドが完了しました")
		return
	}

	total := len(services)
	for i, service := range services {
		// サービスの区切りでキャンセル要求を確認する
		if !alive() {
			log.Printf("ビルドがキャンセルされました: %s", strings.Join(services[i:], " "))
			r.manager.State().Fail(KindBuild)
			return
		}

		command := fmt.Sprintf("cd %s && docker-compose -f docker-compose-build.yml build%s %s >> %s 2>&1",
			r.workspace.BuildDir, noCache, service, r.workspace.BuildLogFile)
		if ok, detail, _ := r.exec.Run(ctx, command, false); !ok {
			log.Printf("エラー: サービス %s のビルドに失敗: %s", service, detail)
			r.manager.State().Fail(KindBuild)
			return
		}

		r.manager.State().Set(KindBuild, (i+1)*100/total)
		log.Printf("ビルド完了 (%d/%d): %s", i+1, total, service)
	}

	r.manager.State().Complete(KindBuild)
	log.Printf("ビルドが完了しました")
}
