package executor

import (
	"context"
	"strings"
	"testing"
)

// TestShellExecutorSuccess は正常なコマンド実行をテストする
func TestShellExecutorSuccess(t *testing.T) {
	e := NewShellExecutor()

	ok, errDetail, output := e.Run(context.Background(), "echo hello", false)
	if !ok {
		t.Fatalf("コマンドの実行に失敗しました: %s", errDetail)
	}
	if strings.TrimSpace(output) != "hello" {
		t.Errorf("出力が一致しません: got %q, want %q", output, "hello")
	}
}

// TestShellExecutorFailure は失敗するコマンドの実行をテストする
func TestShellExecutorFailure(t *testing.T) {
	e := NewShellExecutor()

	ok, errDetail, _ := e.Run(context.Background(), "exit 1", false)
	if ok {
		t.Fatal("失敗が期待されましたが、成功しました")
	}
	if errDetail == "" {
		t.Error("エラー詳細が空です")
	}
}

// TestShellExecutorRemoteWithoutTarget はリモート先未設定時の動作をテストする
func TestShellExecutorRemoteWithoutTarget(t *testing.T) {
	e := NewShellExecutor()

	ok, errDetail, _ := e.Run(context.Background(), "echo hello", true)
	if ok {
		t.Fatal("リモート実行先が未設定の場合は失敗すべきです")
	}
	if errDetail == "" {
		t.Error("エラー詳細が空です")
	}
}

// TestMockExecutor はモックの記録と結果返却をテストする
func TestMockExecutor(t *testing.T) {
	m := NewMockExecutor()
	m.Enqueue(MockResult{OK: true, Output: "first"})
	m.Enqueue(MockResult{OK: false, ErrorDetail: "second failed"})

	ok, _, output := m.Run(context.Background(), "cmd-1", false)
	if !ok || output != "first" {
		t.Errorf("1回目の結果が一致しません: ok=%v output=%q", ok, output)
	}

	ok, errDetail, _ := m.Run(context.Background(), "cmd-2", true)
	if ok || errDetail != "second failed" {
		t.Errorf("2回目の結果が一致しません: ok=%v errDetail=%q", ok, errDetail)
	}

	// 結果未設定の場合は成功を返す
	ok, _, _ = m.Run(context.Background(), "cmd-3", false)
	if !ok {
		t.Error("結果未設定時は成功が期待されます")
	}

	calls := m.Calls()
	if len(calls) != 3 {
		t.Fatalf("呼び出し回数が一致しません: got %d, want 3", len(calls))
	}
	if calls[0].Command != "cmd-1" || calls[0].Remote {
		t.Errorf("1回目の呼び出し記録が一致しません: %+v", calls[0])
	}
	if calls[1].Command != "cmd-2" || !calls[1].Remote {
		t.Errorf("2回目の呼び出し記録が一致しません: %+v", calls[1])
	}
}
