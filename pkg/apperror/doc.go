// Package apperror はサービス共通のエラー分類とHTTPレスポンスへの変換を提供する。
//
// 入力不正、認証失敗、所有者チェック違反、状態遷移違反といったビジネスエラーを
// 定義済みのエラー値として表現し、境界でのみJSONレスポンスに変換する。
// 想定外のエラーは詳細をログに記録し、クライアントには汎用メッセージだけを返す。
package apperror
