// Package users はアカウント登録とログインを担当するIDサービスの内部実装を提供する。
//
// パスワードはbcryptでハッシュ化して保存し、ログインに成功するとHS256署名の
// IDトークンを発行する。発行したトークンはordersサービスが共有シークレットで検証する。
package users
