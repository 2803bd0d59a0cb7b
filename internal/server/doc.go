// Package server はREST APIとMJPEGストリーミングのHTTP層を提供する
//
// すべてのAPIレスポンスは共通のエンベロープ形式で返される。
// 処理の成否はエンベロープ内のstatus_infoで表現し、HTTPステータスは
// リクエスト自体の受理可否（バインド失敗やリソース不在）にのみ使う。
// ストリーミングエンドポイントだけはエンベロープを使わず、
// multipart/x-mixed-replace形式でJPEGフレームを配信する。
package server
