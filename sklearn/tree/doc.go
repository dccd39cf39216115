// Package tree はCART決定木（回帰・分類）を提供します。
//
// 分割は各特徴量の値でソートしたサンプル列を走査して求めます。回帰は二乗誤差、
// 分類はジニ不純度またはエントロピーを最小化します。学習済みの木はフラットな
// ノード配列として保持され、gobで保存できます。
//
// 使用例:
//
//	dt := tree.NewDecisionTreeClassifier(
//	    tree.WithCriterion("gini"),
//	    tree.WithMaxDepth(5),
//	)
//	if err := dt.Fit(X, y); err != nil {
//	    return err
//	}
//	pred, err := dt.Predict(XTest)
package tree
