package tagger

import "strings"

// stopwords returns the stopword set for a stemmer language. Languages
// without a list get an empty set, which only affects the word counts in
// the statistics.
func stopwords(language string) map[string]bool {
	var list string
	switch language {
	case "dutch":
		list = dutchStopwords
	case "english":
		list = englishStopwords
	default:
		return map[string]bool{}
	}
	set := make(map[string]bool)
	for _, w := range strings.Fields(list) {
		set[w] = true
	}
	return set
}

const dutchStopwords = `
aan al alles als altijd andere ben bij daar dan dat de der deze die dit doch
doen door dus een eens en er ge geen geweest haar had heb hebben heeft hem het
hier hij hoe hun iemand iets ik in is ja je kan kon kunnen maar me meer men met
mij mijn moet na naar niet niets nog nu of om omdat onder ons ook op over reeds
te tegen toch toen tot u uit uw van veel voor want waren was wat werd wezen wie
wil worden wordt zal ze zelf zich zij zijn zo zonder zou
`

const englishStopwords = `
a about above after again against all am an and any are as at be because been
before being below between both but by could did do does doing down during
each few for from further had has have having he her here hers herself him
himself his how i if in into is it its itself me more most my myself no nor
not of off on once only or other our ours ourselves out over own same she
should so some such than that the their theirs them themselves then there
these they this those through to too under until up very was we were what when
where which while who whom why will with you your yours yourself yourselves
`
