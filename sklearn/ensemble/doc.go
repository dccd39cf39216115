// Package ensemble はランダムフォレスト（回帰・分類）を提供します。
//
// 各木はブートストラップ標本と分割ごとの特徴量サブサンプリングで学習されます。
// 木ごとの乱数シードは random_state から順に導出されるため、n_jobs に関わらず
// 同じ random_state なら同じモデルになります。学習は errgroup で n_jobs 並列、
// 予測は core/parallel で行単位に並列化されます。
package ensemble
