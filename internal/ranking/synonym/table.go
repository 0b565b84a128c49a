package synonym

// groups lists interchangeable terms. Every member of a group expands to every other member,
// which keeps the table bidirectional without maintaining both directions by hand.
// Entries are lower-case; English and Russian spellings share a group.
var groups = [][]string{
	// Frontend
	{"react", "reactjs", "react.js", "реакт"},
	{"vue", "vuejs", "vue.js", "вью"},
	{"angular", "angularjs", "ангуляр"},
	{"javascript", "js", "джаваскрипт", "джс"},
	{"typescript", "ts", "тайпскрипт"},
	{"frontend", "front-end", "фронтенд", "фронт-энд", "фронт"},

	// Backend and languages
	{"backend", "back-end", "бэкенд", "бекенд", "бэк"},
	{"fullstack", "full-stack", "фулстек", "фуллстек"},
	{"python", "питон", "пайтон"},
	{"golang", "go", "голанг"},
	{"java", "джава"},
	{"kotlin", "котлин"},
	{"swift", "свифт"},
	{"node.js", "nodejs", "node", "нода"},
	{"sql", "postgresql", "postgres", "постгрес"},

	// Infrastructure
	{"devops", "девопс", "sre"},
	{"kubernetes", "k8s", "кубернетес"},
	{"docker", "докер"},
	{"cloud", "облако", "облачный", "облачные"},
	{"security", "безопасность", "infosec", "кибербезопасность"},

	// Data and AI
	{"ml", "machine learning", "машинное обучение", "машинного обучения"},
	{"ai", "artificial intelligence", "искусственный интеллект", "ии"},
	{"data", "данные", "данных"},
	{"analytics", "аналитика", "analysis", "анализ"},
	{"analyst", "аналитик"},
	{"nlp", "natural language processing", "обработка естественного языка"},
	{"llm", "llms", "языковые модели"},
	{"computer vision", "cv", "компьютерное зрение"},
	{"research", "исследования", "исследую", "researcher", "исследователь"},

	// Mobile
	{"mobile", "мобильный", "мобильные", "мобильная разработка"},
	{"ios", "айос"},
	{"android", "андроид"},
	{"flutter", "флаттер"},

	// Roles
	{"developer", "разработчик", "программист", "engineer", "инженер", "dev"},
	{"designer", "дизайнер"},
	{"design", "дизайн", "ux", "ui"},
	{"product", "продукт", "продуктовый"},
	{"manager", "менеджер", "руководитель"},
	{"founder", "основатель", "фаундер", "cofounder", "co-founder", "кофаундер"},
	{"cto", "техдиректор", "технический директор"},
	{"ceo", "гендиректор", "генеральный директор"},
	{"mentor", "ментор", "наставник", "mentoring", "менторство"},
	{"qa", "тестирование", "testing", "тестировщик"},

	// Business
	{"startup", "стартап", "стартапы"},
	{"investor", "инвестор", "инвестиции", "investment", "investments"},
	{"marketing", "маркетинг", "маркетолог"},
	{"growth", "рост", "growth hacking"},
	{"sales", "продажи", "продаж"},
	{"blockchain", "блокчейн", "web3", "crypto", "крипто"},
	{"fundraising", "фандрайзинг", "привлечение инвестиций"},
	{"hiring", "найм", "рекрутинг", "recruiting"},
}

// table maps a term to its synonyms. Built once in init, never mutated afterwards.
var table map[string][]string

func init() {
	table = buildTable(groups)
}

func buildTable(gs [][]string) map[string][]string {
	seen := make(map[string]map[string]struct{})
	t := make(map[string][]string)

	for _, g := range gs {
		for _, term := range g {
			if seen[term] == nil {
				seen[term] = make(map[string]struct{})
			}
			for _, other := range g {
				if other == term {
					continue
				}
				if _, dup := seen[term][other]; dup {
					continue
				}
				seen[term][other] = struct{}{}
				t[term] = append(t[term], other)
			}
		}
	}
	return t
}
