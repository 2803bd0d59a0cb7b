// Package camera カメラデバイスのストリーミング管理を担う
//
// # 責務
// - デバイスIDからキャプチャワーカーへのレジストリ管理
// - デバイスごとのキャプチャワーカーのライフサイクル管理
// - フレームの取得・リサイズ・JPEGエンコードと有界バッファへの発行
// - ストリームIDによるフレームフィードの提供
// - v4l2-ctlによるカメラコントロールの取得・設定
//
// # 仕様
// - Registry: デバイスIDをキーとするマップ。エントリがワーカーを所有する
// - ワーカーはaliveフラグで協調的に停止する（フレームループごとに確認）
// - Stopは「シグナル→ロック解放→join→エントリ削除」の二段階手順で行い、
//   ワーカーとのデッドロックを防ぐ
// - デバイス異常はプロセスに波及せず、エントリの自己削除に縮退する
// - フレームバッファは条件変数つきの有界FIFO。満杯時のポリシーは
//   drop（新フレーム破棄、デフォルト）とoverwrite（最古を上書き）から選択
//
// # 前提要件
//   - ffmpeg: 画像キャプチャとストリーミングに使用
//   - v4l-utils: カメラコントロールの取得・設定に使用
package camera
