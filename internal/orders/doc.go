// Package orders は注文管理サービスの内部実装を提供する。
//
// すべてのリクエストはBearerトークンの検証を通過してから処理される。
// 既存注文に対する操作は、注文の検索、所有者の確認、状態の確認、入力の検証、
// 更新の順で評価され、所有者でない呼び出し元には注文の状態に関係なくForbiddenを返す。
//
// 注文の状態遷移は pending から cancelled への一方向のみで、cancelled は終端状態である。
package orders
