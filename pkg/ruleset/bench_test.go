package ruleset

import (
	"context"
	"testing"
)

func BenchmarkService_Evaluate(b *testing.B) {
	svc, _ := newTestService(b, Options{})
	mustDeploy(b, svc, "kyc", kycRules)
	mustDeploy(b, svc, "wallet", walletRules)
	fc := highRiskPending()
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if out := svc.Evaluate(ctx, "kyc", fc); !out.Matched {
			b.Fatal("expected a match")
		}
	}
}

func BenchmarkService_EvaluateParallel(b *testing.B) {
	svc, _ := newTestService(b, Options{})
	mustDeploy(b, svc, "kyc", kycRules)
	fc := highRiskPending()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			svc.Evaluate(ctx, "kyc", fc)
		}
	})
}

func BenchmarkService_Deploy(b *testing.B) {
	svc, _ := newTestService(b, Options{})
	mustDeploy(b, svc, "wallet", walletRules)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Deploy(ctx, "kyc", kycRules); err != nil {
			b.Fatal(err)
		}
	}
}
