package datalayer

import "github.com/mmcdole/querycache/internal/querymanager"

// Observer is notified after the service's manager is replaced.
type Observer interface {
	OnChange(prev, next *querymanager.Manager)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(prev, next *querymanager.Manager)

func (f ObserverFunc) OnChange(prev, next *querymanager.Manager) { f(prev, next) }
