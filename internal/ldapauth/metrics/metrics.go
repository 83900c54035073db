// Метрики Prometheus сервиса аутентификации.
//
// Основные возможности:
//   - Счётчик попыток входа по результату.
//   - Доступность LDAP сервера по данным периодической проверки.
//   - Повторно присланные решения капчи.
//   - Время запуска сервера.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ldapauth"

type Metrics struct {
	loginOutcomes  *prometheus.CounterVec
	directoryUp    prometheus.Gauge
	captchaReplays prometheus.Counter
	bootTime       prometheus.Gauge
}

// New создает метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		loginOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_outcomes_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
		directoryUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "directory_up",
			Help:      "1 if the last LDAP server probe succeeded",
		}),
		captchaReplays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captcha_replay_attacks_total",
			Help:      "Total count of duplicated signatures in requests with captcha",
		}),
		bootTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "boot_time",
			Help:      "Server startup time",
		}),
	}

	for _, c := range []prometheus.Collector{m.loginOutcomes, m.directoryUp, m.captchaReplays, m.bootTime} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	m.bootTime.Set(float64(time.Now().UnixMilli()))
	return m, nil
}

func (m *Metrics) ObserveLogin(outcome string) {
	m.loginOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetDirectoryUp(up bool) {
	if up {
		m.directoryUp.Set(1)
	} else {
		m.directoryUp.Set(0)
	}
}

func (m *Metrics) ObserveCaptchaReplay() {
	m.captchaReplays.Inc()
}
