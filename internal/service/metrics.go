// metrics.go — бизнес-метрики casevault (Prometheus).
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	usersRegisteredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cv_users_registered_total",
			Help: "Количество зарегистрированных пользователей по ролям.",
		},
		[]string{"role"},
	)

	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cv_logins_total",
			Help: "Количество попыток входа по результату (success, failure).",
		},
		[]string{"result"},
	)

	casesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cv_cases_created_total",
		Help: "Количество созданных дел.",
	})

	evidenceUploadedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cv_evidence_uploaded_total",
			Help: "Количество загруженных доказательств по типам.",
		},
		[]string{"type"},
	)

	evidenceUploadedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cv_evidence_uploaded_bytes_total",
		Help: "Суммарный объём загруженных файлов доказательств в байтах.",
	})

	evidenceOrphanedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cv_evidence_orphaned_files_total",
		Help: "Файлы, сохранённые на диск без записи метаданных (ошибка хэша или БД).",
	})

	evidenceTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cv_evidence_transitions_total",
			Help: "Переходы статусов доказательств.",
		},
		[]string{"status"},
	)

	profileCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cv_profile_cache_hits_total",
		Help: "Попадания в LRU-кэш профилей пользователей.",
	})

	profileCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cv_profile_cache_misses_total",
		Help: "Промахи LRU-кэша профилей пользователей.",
	})
)
