package task

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"hakobiya/internal/config"
	"hakobiya/internal/executor"
)

// newTestRunner はテスト用のワークスペースを持つRunnerを作成する
func newTestRunner(t *testing.T) (*Runner, *executor.MockExecutor, config.WorkspaceConfig) {
	t.Helper()

	rootDir := t.TempDir()
	buildDir := filepath.Join(rootDir, "build")
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		t.Fatalf("ビルドディレクトリの作成に失敗: %v", err)
	}

	workspace := config.WorkspaceConfig{
		RootDir:         rootDir,
		BuildDir:        buildDir,
		ComposeFile:     filepath.Join(buildDir, "docker-compose-build.yml"),
		EnvFile:         filepath.Join(buildDir, ".env"),
		ProvisionScript: filepath.Join(buildDir, "provision", "provision.sh"),
		BuildLogFile:    filepath.Join(buildDir, "build.log"),
	}

	mock := executor.NewMockExecutor()
	runner := NewRunner(NewManager(NewState()), mock, workspace)
	return runner, mock, workspace
}

// progressRecorder はコマンド実行時点の進捗を記録するフックを作成する
func progressRecorder(m *Manager) (func(executor.MockCall), func() []int) {
	var mu sync.Mutex
	var seen []int
	hook := func(executor.MockCall) {
		mu.Lock()
		seen = append(seen, m.Progress().Progress)
		mu.Unlock()
	}
	snapshot := func() []int {
		mu.Lock()
		defer mu.Unlock()
		return append([]int(nil), seen...)
	}
	return hook, snapshot
}

func TestBuildSequential(t *testing.T) {
	runner, mock, workspace := newTestRunner(t)

	err := runner.StartBuild(BuildParams{Services: []string{"camera", "web", "broker"}, NoCache: true})
	if err != nil {
		t.Fatalf("ビルドの開始に失敗: %v", err)
	}
	runner.manager.join(KindBuild)

	got := runner.manager.Progress()
	if got.Task != KindBuild || got.Progress != 100 || got.Status != StatusSuccess {
		t.Errorf("進捗100のSuccessを期待したが %+v が返された", got)
	}

	calls := mock.Calls()
	if len(calls) != 4 {
		t.Fatalf("コマンド数が不正: %d (want 4)", len(calls))
	}
	// 先頭で前回のビルドログを削除する
	if !strings.Contains(calls[0].Command, "rm -f "+workspace.BuildLogFile) {
		t.Errorf("ビルドログの削除コマンドが不正: %s", calls[0].Command)
	}
	// 指定された順序で1サービスずつビルドする
	for i, service := range []string{"camera", "web", "broker"} {
		cmd := calls[i+1].Command
		if !strings.Contains(cmd, "docker-compose -f docker-compose-build.yml build --no-cache "+service) {
			t.Errorf("サービス %s のビルドコマンドが不正: %s", service, cmd)
		}
		if !strings.Contains(cmd, "cd "+workspace.BuildDir) {
			t.Errorf("ビルドディレクトリへの移動がない: %s", cmd)
		}
	}
}

func TestBuildSequentialProgress(t *testing.T) {
	runner, mock, _ := newTestRunner(t)
	hook, snapshot := progressRecorder(runner.manager)
	mock.OnRun = hook

	if err := runner.StartBuild(BuildParams{Services: []string{"a", "b", "c", "d"}}); err != nil {
		t.Fatalf("ビルドの開始に失敗: %v", err)
	}
	runner.manager.join(KindBuild)

	// rm + 4サービス分のコマンド実行時点の進捗（床値で単調増加）
	want := []int{0, 0, 25, 50, 75}
	got := snapshot()
	if len(got) != len(want) {
		t.Fatalf("記録された進捗の数が不正: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("進捗の推移が不正: got %v, want %v", got, want)
			break
		}
	}
}

func TestBuildFailureFreezesProgress(t *testing.T) {
	runner, mock, _ := newTestRunner(t)
	mock.Enqueue(executor.MockResult{OK: true})                                 // rm
	mock.Enqueue(executor.MockResult{OK: true})                                 // camera
	mock.Enqueue(executor.MockResult{OK: false, ErrorDetail: "build failed"})   // web

	if err := runner.StartBuild(BuildParams{Services: []string{"camera", "web", "broker"}}); err != nil {
		t.Fatalf("ビルドの開始に失敗: %v", err)
	}
	runner.manager.join(KindBuild)

	// 失敗時の進捗は最後に到達した値のまま凍結される
	got := runner.manager.Progress()
	if got.Status != StatusFailed || got.Progress != 33 {
		t.Errorf("進捗33のFailedを期待したが %+v が返された", got)
	}
	// 失敗したサービス以降のビルドは実行されない
	if len(mock.Calls()) != 3 {
		t.Errorf("コマンド数が不正: %d (want 3)", len(mock.Calls()))
	}
}

func TestBuildBatch(t *testing.T) {
	runner, mock, _ := newTestRunner(t)

	if err := runner.StartBuild(BuildParams{Services: []string{"*"}}); err != nil {
		t.Fatalf("ビルドの開始に失敗: %v", err)
	}
	runner.manager.join(KindBuild)

	got := runner.manager.Progress()
	if got.Progress != 100 || got.Status != StatusSuccess {
		t.Errorf("進捗100のSuccessを期待したが %+v が返された", got)
	}

	// rm + 一括ビルドコマンドの2つだけ
	calls := mock.Calls()
	if len(calls) != 2 {
		t.Fatalf("コマンド数が不正: %d (want 2)", len(calls))
	}
	if !strings.Contains(calls[1].Command, "docker-compose -f docker-compose-build.yml build >>") {
		t.Errorf("一括ビルドコマンドが不正: %s", calls[1].Command)
	}
}

func TestBuildWildcardSequential(t *testing.T) {
	runner, mock, workspace := newTestRunner(t)

	// マニフェストの記述順でビルドされる
	manifest := "services:\n  broker:\n    image: broker\n  camera:\n    image: camera\n"
	if err := os.WriteFile(workspace.ComposeFile, []byte(manifest), 0o644); err != nil {
		t.Fatalf("マニフェストの作成に失敗: %v", err)
	}

	if err := runner.StartBuild(BuildParams{Services: []string{"*"}, Sequential: true}); err != nil {
		t.Fatalf("ビルドの開始に失敗: %v", err)
	}
	runner.manager.join(KindBuild)

	calls := mock.Calls()
	if len(calls) != 3 {
		t.Fatalf("コマンド数が不正: %d (want 3)", len(calls))
	}
	if !strings.Contains(calls[1].Command, "build broker") || !strings.Contains(calls[2].Command, "build camera") {
		t.Errorf("マニフェスト順のビルドになっていない: %v", calls)
	}
}

func TestBuildWildcardSequentialManifestMissing(t *testing.T) {
	runner, mock, _ := newTestRunner(t)

	if err := runner.StartBuild(BuildParams{Services: []string{"*"}, Sequential: true}); err != nil {
		t.Fatalf("ビルドの開始に失敗: %v", err)
	}
	runner.manager.join(KindBuild)

	if got := runner.manager.Progress(); got.Status != StatusFailed {
		t.Errorf("マニフェスト不在時はFailedを期待したが %+v が返された", got)
	}
	if len(mock.Calls()) != 0 {
		t.Errorf("マニフェスト解析失敗後にコマンドが実行された: %v", mock.Calls())
	}
}

func TestBuildCancel(t *testing.T) {
	runner, mock, _ := newTestRunner(t)

	// 最初のサービスのビルド完了後にキャンセルを要求する
	mock.OnRun = func(call executor.MockCall) {
		if strings.Contains(call.Command, "build camera") {
			runner.manager.Cancel(KindBuild)
		}
	}

	if err := runner.StartBuild(BuildParams{Services: []string{"camera", "web", "broker"}}); err != nil {
		t.Fatalf("ビルドの開始に失敗: %v", err)
	}
	runner.manager.join(KindBuild)

	got := runner.manager.Progress()
	if got.Status != StatusFailed || got.Progress != 33 {
		t.Errorf("進捗33のFailedを期待したが %+v が返された", got)
	}
	// キャンセル以降のサービスはビルドされない
	if len(mock.Calls()) != 2 {
		t.Errorf("コマンド数が不正: %d (want 2)", len(mock.Calls()))
	}
}

func TestBuildInvalidParams(t *testing.T) {
	runner, mock, _ := newTestRunner(t)

	if err := runner.StartBuild(BuildParams{}); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("ErrInvalidParamsを期待したが %v が返された", err)
	}
	// 不正パラメータではワーカーを起動しない
	if runner.manager.IsBusy() {
		t.Error("不正パラメータでビジー状態になった")
	}
	if len(mock.Calls()) != 0 {
		t.Errorf("不正パラメータでコマンドが実行された: %v", mock.Calls())
	}
}

func TestDeploy(t *testing.T) {
	runner, mock, workspace := newTestRunner(t)
	hook, snapshot := progressRecorder(runner.manager)
	mock.OnRun = hook

	params := DeployParams{
		Images:   []string{"app:latest", "broker:latest"},
		Host:     "192.168.10.5",
		Username: "deploy",
		Password: "secret",
		Path:     "/opt/workspace",
	}
	if err := runner.StartDeploy(params); err != nil {
		t.Fatalf("デプロイの開始に失敗: %v", err)
	}
	runner.manager.join(KindDeploy)

	got := runner.manager.Progress()
	if got.Task != KindDeploy || got.Progress != 100 || got.Status != StatusSuccess {
		t.Errorf("進捗100のSuccessを期待したが %+v が返された", got)
	}

	calls := mock.Calls()
	if len(calls) != 3 {
		t.Fatalf("コマンド数が不正: %d (want 3)", len(calls))
	}
	// イメージはアーカイブ経由でリモートにロードする
	if !strings.Contains(calls[0].Command, "docker save app:latest | bzip2 |") ||
		!strings.Contains(calls[0].Command, "deploy@192.168.10.5 docker load") {
		t.Errorf("イメージ転送コマンドが不正: %s", calls[0].Command)
	}
	// 最後にビルドディレクトリを配置先へ同期する
	if !strings.Contains(calls[2].Command, "rsync -r") ||
		!strings.Contains(calls[2].Command, workspace.BuildDir) ||
		!strings.Contains(calls[2].Command, "deploy@192.168.10.5:/opt/workspace") {
		t.Errorf("同期コマンドが不正: %s", calls[2].Command)
	}

	// イメージ2個 + 同期1回で 100/(2+1) ずつ進む
	want := []int{0, 33, 66}
	progresses := snapshot()
	for i := range want {
		if progresses[i] != want[i] {
			t.Errorf("進捗の推移が不正: got %v, want %v", progresses, want)
			break
		}
	}
}

func TestDeployImageFailure(t *testing.T) {
	runner, mock, _ := newTestRunner(t)
	mock.Enqueue(executor.MockResult{OK: true})
	mock.Enqueue(executor.MockResult{OK: false, ErrorDetail: "connection refused"})

	params := DeployParams{
		Images:   []string{"a:1", "b:1", "c:1"},
		Host:     "192.168.10.5",
		Username: "deploy",
		Password: "secret",
		Path:     "/opt/workspace",
	}
	if err := runner.StartDeploy(params); err != nil {
		t.Fatalf("デプロイの開始に失敗: %v", err)
	}
	runner.manager.join(KindDeploy)

	got := runner.manager.Progress()
	if got.Status != StatusFailed || got.Progress != 25 {
		t.Errorf("進捗25のFailedを期待したが %+v が返された", got)
	}
}

func TestDeployCancelBeforeSync(t *testing.T) {
	runner, mock, _ := newTestRunner(t)

	// 最後のイメージ転送後にキャンセルを要求する
	mock.OnRun = func(call executor.MockCall) {
		if strings.Contains(call.Command, "docker save b:1") {
			runner.manager.Cancel(KindDeploy)
		}
	}

	params := DeployParams{
		Images:   []string{"a:1", "b:1"},
		Host:     "192.168.10.5",
		Username: "deploy",
		Password: "secret",
		Path:     "/opt/workspace",
	}
	if err := runner.StartDeploy(params); err != nil {
		t.Fatalf("デプロイの開始に失敗: %v", err)
	}
	runner.manager.join(KindDeploy)

	// 同期は実行されずFailedで終了する
	got := runner.manager.Progress()
	if got.Status != StatusFailed || got.Progress != 66 {
		t.Errorf("進捗66のFailedを期待したが %+v が返された", got)
	}
	if len(mock.Calls()) != 2 {
		t.Errorf("キャンセル後に同期コマンドが実行された: %v", mock.Calls())
	}
}

func TestProvision(t *testing.T) {
	runner, mock, workspace := newTestRunner(t)

	env := "# build settings\nDEV_MODE=false\nLOG_LEVEL=info\n"
	if err := os.WriteFile(workspace.EnvFile, []byte(env), 0o644); err != nil {
		t.Fatalf(".envファイルの作成に失敗: %v", err)
	}

	if err := runner.StartProvision(ProvisionParams{DevMode: true}); err != nil {
		t.Fatalf("プロビジョニングの開始に失敗: %v", err)
	}
	runner.manager.join(KindProvision)

	got := runner.manager.Progress()
	if got.Task != KindProvision || got.Progress != 100 || got.Status != StatusSuccess {
		t.Errorf("進捗100のSuccessを期待したが %+v が返された", got)
	}

	// DEV_MODEだけが書き換えられ、他の行は保持される
	data, err := os.ReadFile(workspace.EnvFile)
	if err != nil {
		t.Fatalf(".envファイルの読み込みに失敗: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "DEV_MODE=true") {
		t.Errorf("DEV_MODEが書き換えられていない: %s", content)
	}
	if !strings.Contains(content, "# build settings") || !strings.Contains(content, "LOG_LEVEL=info") {
		t.Errorf("他の行が保持されていない: %s", content)
	}

	calls := mock.Calls()
	if len(calls) != 1 || !strings.Contains(calls[0].Command, workspace.ProvisionScript) {
		t.Errorf("プロビジョニングコマンドが不正: %v", calls)
	}
}

func TestProvisionEnvFileMissing(t *testing.T) {
	runner, mock, _ := newTestRunner(t)

	if err := runner.StartProvision(ProvisionParams{}); err != nil {
		t.Fatalf("プロビジョニングの開始に失敗: %v", err)
	}
	runner.manager.join(KindProvision)

	if got := runner.manager.Progress(); got.Status != StatusFailed {
		t.Errorf(".env不在時はFailedを期待したが %+v が返された", got)
	}
	if len(mock.Calls()) != 0 {
		t.Errorf(".env更新失敗後にコマンドが実行された: %v", mock.Calls())
	}
}

func TestProvisionScriptFailure(t *testing.T) {
	runner, mock, workspace := newTestRunner(t)

	if err := os.WriteFile(workspace.EnvFile, []byte("DEV_MODE=true\n"), 0o644); err != nil {
		t.Fatalf(".envファイルの作成に失敗: %v", err)
	}
	mock.Enqueue(executor.MockResult{OK: false, ErrorDetail: "script error"})

	if err := runner.StartProvision(ProvisionParams{}); err != nil {
		t.Fatalf("プロビジョニングの開始に失敗: %v", err)
	}
	runner.manager.join(KindProvision)

	// スクリプト失敗時は.env更新後の10%で凍結される
	got := runner.manager.Progress()
	if got.Status != StatusFailed || got.Progress != 10 {
		t.Errorf("進捗10のFailedを期待したが %+v が返された", got)
	}
}

func TestUpdateEnvFile(t *testing.T) {
	t.Run("キーが存在しない場合はエラー", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("LOG_LEVEL=info\n"), 0o644); err != nil {
			t.Fatalf(".envファイルの作成に失敗: %v", err)
		}
		if err := updateEnvFile(path, "DEV_MODE", "true"); err == nil {
			t.Error("キー不在でエラーが返されなかった")
		}
	})

	t.Run("値が複数回でもすべて書き換える", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("DEV_MODE=false\nDEV_MODE=false\n"), 0o644); err != nil {
			t.Fatalf(".envファイルの作成に失敗: %v", err)
		}
		if err := updateEnvFile(path, "DEV_MODE", "true"); err != nil {
			t.Fatalf("書き換えに失敗: %v", err)
		}
		data, _ := os.ReadFile(path)
		if strings.Contains(string(data), "DEV_MODE=false") {
			t.Errorf("書き換えられていない行が残っている: %s", data)
		}
	})
}

func TestLogs(t *testing.T) {
	runner, _, workspace := newTestRunner(t)

	t.Run("ビルドログをbase64で返す", func(t *testing.T) {
		if err := os.WriteFile(workspace.BuildLogFile, []byte("Step 1/5 : FROM golang\n"), 0o644); err != nil {
			t.Fatalf("ビルドログの作成に失敗: %v", err)
		}
		logs, err := runner.Logs([]string{"build"})
		if err != nil {
			t.Fatalf("ログの取得に失敗: %v", err)
		}
		decoded, err := base64.StdEncoding.DecodeString(logs["build"])
		if err != nil {
			t.Fatalf("base64のデコードに失敗: %v", err)
		}
		if string(decoded) != "Step 1/5 : FROM golang\n" {
			t.Errorf("ログの内容が不正: %s", decoded)
		}
	})

	t.Run("ログを持たないタスクはエラー", func(t *testing.T) {
		if _, err := runner.Logs([]string{"deploy"}); err == nil {
			t.Error("ログを持たないタスクでエラーが返されなかった")
		}
	})
}
