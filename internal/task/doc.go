// Package task ビルド・プロビジョニング・デプロイの実行管理を担う
//
// # 責務
// - プロセス全体で単一の進捗状態（タスク種別・進捗率・ステータス）の管理
// - 「システム全体で同時に1タスクのみ」の排他制御
// - タスク種別ごとのワーカーゴルーチンのライフサイクル管理
// - 各ワーカーの実行手順（外部コマンド列）と進捗更新
//
// # 仕様
// - 実行要求は非キューイング。実行中に届いた要求はErrBusyで即座に拒否する
// - ワーカー内の失敗は例外としてゴルーチン境界を越えず、
//   すべてステータス（Failed）への変化に変換される
// - キャンセルはaliveフラグによる協調的なもので、ワーカーは
//   ステップの区切りでのみ確認する。ステップ途中の強制中断はしない
// - 外部コマンドの実行時間は制限しない。ハングしたコマンドは
//   ビジー状態を保持し続ける（既知の制限）
package task
