package server

// StatusInfo はAPIレスポンスの成否情報
type StatusInfo struct {
	Status      bool   `json:"status"`       // 処理の成否
	ErrorDetail string `json:"error_detail"` // 失敗時のエラー詳細
	Console     string `json:"console"`      // コマンドのコンソール出力
}

// Response はすべてのAPIで共通のレスポンスエンベロープ
type Response struct {
	Data       interface{} `json:"data"`
	StatusInfo StatusInfo  `json:"status_info"`
}

// newResponse はレスポンスエンベロープを作成する
func newResponse(data interface{}, status bool, errorDetail, console string) Response {
	return Response{
		Data: data,
		StatusInfo: StatusInfo{
			Status:      status,
			ErrorDetail: errorDetail,
			Console:     console,
		},
	}
}

// okResponse は成功レスポンスを作成する
func okResponse(data interface{}) Response {
	return newResponse(data, true, "", "")
}

// errorResponse は失敗レスポンスを作成する
func errorResponse(detail string) Response {
	return newResponse(nil, false, detail, "")
}
